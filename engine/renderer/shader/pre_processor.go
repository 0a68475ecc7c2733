// pre_processor.go implements the WGSL include pre-processor. A line of the form
//
//	// #include camera
//
// is replaced with the registered snippet of that name, so uniform structs shared between
// the mesh and line shaders are declared once.
package shader

import (
	"fmt"
	"strings"
)

// includeDirective is the marker that identifies an include line within a WGSL comment.
const includeDirective = "#include"

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	includes map[string]string
}

// PreProcessor expands include directives in raw WGSL source.
type PreProcessor interface {
	// Process replaces every include line with its snippet. Each snippet is emitted at most once.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the expanded source
	//   - error: an error if an include names an unknown snippet
	Process(source string) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor over the given snippets.
//
// Parameters:
//   - includes: snippet sources keyed by include name, may be nil
//
// Returns:
//   - PreProcessor: the pre-processor
func NewPreProcessor(includes map[string]string) PreProcessor {
	if includes == nil {
		includes = make(map[string]string)
	}
	return &preProcessor{includes: includes}
}

func (p *preProcessor) Process(source string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(source))
	seen := make(map[string]bool)

	for i, line := range strings.Split(source, "\n") {
		name, ok := parseInclude(line)
		if !ok {
			sb.WriteString(line)
			sb.WriteByte('\n')
			continue
		}
		snippet, found := p.includes[name]
		if !found {
			return "", fmt.Errorf("line %d: unknown include %q", i+1, name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		sb.WriteString(strings.TrimRight(snippet, "\n"))
		sb.WriteByte('\n')
	}

	return strings.TrimSuffix(sb.String(), "\n"), nil
}

// parseInclude returns the include name when line is an include directive.
func parseInclude(line string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "//")
	if !ok {
		return "", false
	}
	rest, ok = strings.CutPrefix(strings.TrimSpace(rest), includeDirective)
	if !ok {
		return "", false
	}
	name := strings.TrimSpace(rest)
	return name, name != ""
}
