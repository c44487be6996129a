package parser

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/harrison/driftguard/internal/models"
)

// profileHeadingRegex recognises profile headings such as
// "Verification Commands", "Verification Commands:", "Verify (release)"
// and "Profile: release candidate". Group 1 is the keyword, group 2 the
// optional name, which may span several words.
var profileHeadingRegex = regexp.MustCompile(
	`(?i)^(verification(?:\s+(?:commands?|profile|steps))?|verify|profile)` +
		`(?:\s*(?:[:\-\x{2013}\x{2014}]|\()\s*` +
		`(?:\x60?([A-Za-z0-9][\w.\-]*(?:\s+[\w.\-]+)*)\x60?\s*\)?)?)?\s*$`)

// shellLanguages are fenced code block info strings treated as commands.
var shellLanguages = map[string]bool{
	"":              true,
	"bash":          true,
	"sh":            true,
	"shell":         true,
	"zsh":           true,
	"console":       true,
	"shell-session": true,
}

// Instructions is the result of scanning an instructions document.
type Instructions struct {
	profiles map[string]*models.VerificationProfile
	order    []string

	// Warnings describe regions that were recognised but yielded nothing.
	Warnings []string
}

// Names returns the parsed profile names, sorted.
func (in *Instructions) Names() []string {
	names := make([]string, 0, len(in.profiles))
	for name := range in.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profiles returns the parsed profiles in document order.
func (in *Instructions) Profiles() []models.VerificationProfile {
	out := make([]models.VerificationProfile, 0, len(in.order))
	for _, name := range in.order {
		p := in.profiles[name]
		out = append(out, models.VerificationProfile{Name: p.Name, Commands: append([]string(nil), p.Commands...)})
	}
	return out
}

// Lookup returns the named profile.
func (in *Instructions) Lookup(name string) (models.VerificationProfile, bool) {
	p, ok := in.profiles[normalizeName(name)]
	if !ok {
		return models.VerificationProfile{}, false
	}
	return models.VerificationProfile{Name: p.Name, Commands: append([]string(nil), p.Commands...)}, true
}

// Len returns the number of parsed profiles.
func (in *Instructions) Len() int {
	return len(in.profiles)
}

func (in *Instructions) add(name, command string) {
	p, ok := in.profiles[name]
	if !ok {
		p = &models.VerificationProfile{Name: name}
		in.profiles[name] = p
		in.order = append(in.order, name)
	}
	for _, existing := range p.Commands {
		if existing == command {
			return
		}
	}
	p.Commands = append(p.Commands, command)
}

// InstructionsParser extracts verification profiles from a Markdown
// instructions document. Parsing is best-effort: regions it does not
// recognise are skipped and never invalidate profiles found elsewhere.
type InstructionsParser struct {
	markdown goldmark.Markdown
}

// NewInstructionsParser creates a parser.
func NewInstructionsParser() *InstructionsParser {
	return &InstructionsParser{
		markdown: goldmark.New(),
	}
}

// ParseFile parses the document at path.
func (p *InstructionsParser) ParseFile(path string) (*Instructions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse reads a whole document and returns every profile it contains,
// possibly none.
func (p *InstructionsParser) Parse(r io.Reader) (*Instructions, error) {
	source, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	doc := p.markdown.Parser().Parse(text.NewReader(source))
	in := &Instructions{profiles: make(map[string]*models.VerificationProfile)}

	type section struct {
		name     string
		level    int
		commands int
	}
	var current *section

	closeSection := func() {
		if current != nil && current.commands == 0 {
			in.Warnings = append(in.Warnings,
				fmt.Sprintf("profile section %q contains no commands", current.name))
		}
		current = nil
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if heading, ok := n.(*ast.Heading); ok {
			if current != nil && heading.Level <= current.level {
				closeSection()
			}
			if name, ok := ProfileNameFromHeading(extractText(heading, source)); ok {
				closeSection()
				current = &section{name: name, level: heading.Level}
			}
			continue
		}

		if current == nil {
			continue
		}
		for _, cmd := range commandsIn(n, source) {
			in.add(current.name, cmd)
			current.commands++
		}
	}
	closeSection()

	return in, nil
}

// ProfileNameFromHeading returns the profile a heading introduces.
// Headings without a name introduce the default profile; a bare
// "Profile" heading is not a profile heading.
func ProfileNameFromHeading(heading string) (string, bool) {
	m := profileHeadingRegex.FindStringSubmatch(strings.TrimSpace(heading))
	if m == nil {
		return "", false
	}
	name := normalizeName(m[2])
	if name == "" {
		if strings.EqualFold(m[1], "profile") {
			return "", false
		}
		name = models.DefaultProfile
	}
	return name, true
}

// normalizeName lower-cases a profile name and collapses inner whitespace.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// commandsIn collects commands from code blocks and bullet items below n.
func commandsIn(n ast.Node, source []byte) []string {
	var cmds []string

	ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.FencedCodeBlock:
			lang := strings.ToLower(strings.TrimSpace(string(v.Language(source))))
			if !shellLanguages[lang] {
				return ast.WalkSkipChildren, nil
			}
			cmds = append(cmds, commandLines(blockLines(v, source), lang == "console" || lang == "shell-session")...)
			return ast.WalkSkipChildren, nil

		case *ast.CodeBlock:
			cmds = append(cmds, commandLines(blockLines(v, source), false)...)
			return ast.WalkSkipChildren, nil

		case *ast.List:
			if v.IsOrdered() {
				return ast.WalkSkipChildren, nil
			}

		case *ast.ListItem:
			if cmd := bulletCommand(v, source); cmd != "" {
				cmds = append(cmds, cmd)
			}
		}
		return ast.WalkContinue, nil
	})

	return cmds
}

// bulletCommand returns the command a bullet item carries, if any.
// "- pytest" and "- `pytest -q` (unit tests)" both yield a command; the
// code span wins when the item mixes prose and code.
func bulletCommand(item *ast.ListItem, source []byte) string {
	block := item.FirstChild()
	if block == nil {
		return ""
	}
	if _, ok := block.(*ast.TextBlock); !ok {
		if _, ok := block.(*ast.Paragraph); !ok {
			return ""
		}
	}

	for c := block.FirstChild(); c != nil; c = c.NextSibling() {
		if span, ok := c.(*ast.CodeSpan); ok {
			return strings.TrimSpace(extractText(span, source))
		}
	}

	line := strings.TrimSpace(extractText(block, source))
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	return line
}

func blockLines(n ast.Node, source []byte) []string {
	lines := n.Lines()
	out := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, strings.TrimRight(string(seg.Value(source)), "\r\n"))
	}
	return out
}

// commandLines turns code block lines into commands: comments and blanks are
// dropped, "$ " prompts stripped and trailing-backslash continuations joined.
// With promptOnly, lines without a prompt are command output and skipped.
func commandLines(lines []string, promptOnly bool) []string {
	var cmds []string
	var pending strings.Builder

	flush := func() {
		if s := strings.TrimSpace(pending.String()); s != "" {
			cmds = append(cmds, s)
		}
		pending.Reset()
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		continuing := pending.Len() > 0

		if !continuing {
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if strings.HasPrefix(line, "$ ") || line == "$" {
				line = strings.TrimSpace(strings.TrimPrefix(line, "$"))
			} else if promptOnly {
				continue
			}
		}

		if strings.HasSuffix(line, `\`) {
			pending.WriteString(strings.TrimSpace(strings.TrimSuffix(line, `\`)))
			pending.WriteString(" ")
			continue
		}
		pending.WriteString(line)
		flush()
	}
	flush()

	return cmds
}

// extractText concatenates the text content of a node's inline children.
func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteString(" ")
			}
		case *ast.String:
			sb.Write(v.Value)
		default:
			sb.WriteString(extractText(c, source))
		}
	}
	return sb.String()
}
