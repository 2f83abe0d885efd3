package selector

import (
	"strings"

	"atsforge/internal/types"
)

// Assemble renders a SelectionResult as a plain-text, single-column document.
// The layout is deliberately parser-friendly: plain section headers, dash
// bullets, no tables. Empty sections produce no output at all.
func Assemble(sel types.SelectionResult) string {
	var b strings.Builder

	writeLine := func(parts ...string) {
		joined := strings.TrimSpace(strings.Join(parts, " "))
		if joined != "" {
			b.WriteString(joined)
			b.WriteString("\n")
		}
	}

	writeLine(sel.PersonalInfo.Name)
	contact := joinNonEmpty(" • ", sel.PersonalInfo.Email, sel.PersonalInfo.Phone, sel.PersonalInfo.Location, sel.PersonalInfo.LinkedIn)
	writeLine(contact)

	if sel.Summary != "" {
		b.WriteString("\nPROFESSIONAL SUMMARY\n")
		writeLine(sel.Summary)
	}

	if len(sel.Skills) > 0 {
		b.WriteString("\nSKILLS\n")
		writeLine(strings.Join(sel.Skills, ", "))
	}

	if len(sel.Experience) > 0 {
		b.WriteString("\nEXPERIENCE\n")
		for _, exp := range sel.Experience {
			writeLine(exp.Title, "-", exp.Company)
			dates := formatDates(exp.StartDate, exp.EndDate)
			writeLine(joinNonEmpty(" • ", dates, exp.Location))
			for _, bullet := range exp.Bullets {
				writeLine("-", bullet.Text)
			}
			b.WriteString("\n")
		}
	}

	if len(sel.Projects) > 0 {
		b.WriteString("PROJECTS\n")
		for _, proj := range sel.Projects {
			writeLine(proj.Name)
			writeLine(proj.Description)
			if len(proj.TechStack) > 0 {
				writeLine("Tech:", strings.Join(proj.TechStack, ", "))
			}
		}
		b.WriteString("\n")
	}

	if len(sel.Education) > 0 {
		b.WriteString("EDUCATION\n")
		for _, edu := range sel.Education {
			degree := joinNonEmpty(", ", edu.Degree, edu.Field)
			writeLine(joinNonEmpty(" - ", degree, edu.Institution), edu.Year)
		}
		b.WriteString("\n")
	}

	if len(sel.Certifications) > 0 {
		b.WriteString("CERTIFICATIONS\n")
		for _, cert := range sel.Certifications {
			writeLine(joinNonEmpty(" - ", cert.Name, cert.Issuer), cert.Year)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func formatDates(start, end string) string {
	if start == "" {
		return ""
	}
	if end == "" {
		end = "Present"
	}
	return start + " - " + end
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
