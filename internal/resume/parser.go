package resume

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Summary is the structured extraction of a resume, used to frame the
// interview questions.
type Summary struct {
	FullText   string   `json:"-"`
	Skills     []string `json:"skills"`
	Projects   []string `json:"projects"`
	Experience []string `json:"experience"`
	Education  string   `json:"education"`
}

// knownSkills are the technology keywords scanned for in the resume text.
var knownSkills = []string{
	"Python", "Java", "JavaScript", "TypeScript", "Go", "Rust", "C++", "C#",
	"React", "Angular", "Vue", "Node.js", "Django", "Flask", "FastAPI",
	"Spring", "SQL", "PostgreSQL", "MySQL", "MongoDB", "Redis", "Kafka",
	"Docker", "Kubernetes", "AWS", "GCP", "Azure", "Terraform", "Git",
	"Linux", "TensorFlow", "PyTorch", "Machine Learning", "Deep Learning",
	"NLP", "REST", "GraphQL", "gRPC", "CI/CD", "Microservices",
}

var (
	projectsSection   = regexp.MustCompile(`(?is)projects?\s*:?\s*\n(.*?)(?:\n\s*\n|\z)`)
	experienceSection = regexp.MustCompile(`(?is)(?:work\s+)?experience\s*:?\s*\n(.*?)(?:\n\s*\n|\z)`)
	educationSection  = regexp.MustCompile(`(?is)education\s*:?\s*\n(.*?)(?:\n\s*\n|\z)`)
	bulletPrefix      = regexp.MustCompile(`^\s*[•\-*]\s*`)
)

// ParseFile extracts a summary from a PDF resume on disk.
func ParseFile(path string) (*Summary, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	plainText, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("failed to extract PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plainText); err != nil {
		return nil, fmt.Errorf("failed to read PDF text: %w", err)
	}

	text := buf.String()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("resume contains no extractable text")
	}
	return ParseText(text), nil
}

// ParseText extracts a summary from already-extracted resume text.
func ParseText(text string) *Summary {
	return &Summary{
		FullText:   text,
		Skills:     extractSkills(text),
		Projects:   extractSection(text, projectsSection, 3),
		Experience: extractSection(text, experienceSection, 3),
		Education:  extractEducation(text),
	}
}

// extractSkills scans for known technology keywords, case-insensitively,
// deduplicated and capped at 10.
func extractSkills(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]bool)
	var skills []string

	for _, skill := range knownSkills {
		if len(skills) >= 10 {
			break
		}
		if seen[skill] {
			continue
		}
		if strings.Contains(lower, strings.ToLower(skill)) {
			seen[skill] = true
			skills = append(skills, skill)
		}
	}
	return skills
}

// extractSection pulls bullet or line items from a named section, keeping
// only lines long enough to be substantive.
func extractSection(text string, section *regexp.Regexp, limit int) []string {
	match := section.FindStringSubmatch(text)
	if match == nil {
		return nil
	}

	var items []string
	for _, line := range strings.Split(match[1], "\n") {
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if len(line) <= 20 {
			continue
		}
		items = append(items, line)
		if len(items) >= limit {
			break
		}
	}
	return items
}

// extractEducation returns the start of the education section, capped at
// 200 characters.
func extractEducation(text string) string {
	match := educationSection.FindStringSubmatch(text)
	if match == nil {
		return ""
	}

	education := strings.TrimSpace(strings.Join(strings.Fields(match[1]), " "))
	if len(education) > 200 {
		education = education[:200]
	}
	return education
}
