package template

// Option configures a Resolver.
type Option func(*Resolver)

// WithMarkers sets the opening and closing placeholder markers.
//
// Default: "{{" and "}}"
//
// Example:
//
//	r := NewResolver(WithMarkers("<%", "%>"))
//	res := r.Resolve("<%payload.a%>")
//	// res.Resolved: "${a}"
func WithMarkers(open, close string) Option {
	return func(r *Resolver) {
		if open != "" && close != "" {
			r.open = open
			r.close = close
		}
	}
}

// WithSeparator sets the path separator used to find the variable name
// inside a placeholder.
//
// Default: "."
func WithSeparator(sep string) Option {
	return func(r *Resolver) {
		if sep != "" {
			r.separator = sep
		}
	}
}
