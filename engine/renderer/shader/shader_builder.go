package shader

// ShaderBuilderOption is a functional option used to configure a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithIncludes sets the named WGSL snippets that "// #include <name>" lines are replaced with.
//
// Parameters:
//   - includes: snippet sources keyed by include name
//
// Returns:
//   - ShaderBuilderOption: a function that installs a pre-processor with the includes
func WithIncludes(includes map[string]string) ShaderBuilderOption {
	return func(s *shader) {
		s.pp = NewPreProcessor(includes)
	}
}
