package content

import (
	"fmt"
	"strings"

	"github.com/folioworks/portfolio-api/internal/naming"
)

// Section is a top-level content category backed by its own parent table.
type Section string

// Known sections.
const (
	SectionHome       Section = "home"
	SectionAbout      Section = "about"
	SectionAwards     Section = "awards"
	SectionEducation  Section = "education"
	SectionExperience Section = "experience"
	SectionGallery    Section = "gallery"
	SectionProjects   Section = "projects"
)

// allSections lists sections in display order.
var allSections = []Section{
	SectionHome,
	SectionAbout,
	SectionAwards,
	SectionEducation,
	SectionExperience,
	SectionGallery,
	SectionProjects,
}

// Scope columns shared by every parent table.
const (
	ColumnID           = "id"
	ColumnLanguageCode = "languageCode"
	ColumnIsActive     = "isActive"

	DefaultLanguage = "en"
)

// ImageFields are the column names holding asset references.
var ImageFields = []string{
	"imageUrl",
	"educationImageUrl",
	"awardImageUrl",
	"experienceImageUrl",
	"logoUrl",
}

// Relation describes a child or nested table: where it lives, how it points at
// its parent, and which columns callers may write.
type Relation struct {
	Name       string
	Table      string
	ForeignKey string
	Fields     []string
	// Eager relations have their nested relations attached when listed.
	Eager bool
}

// SectionSchema is the registry entry for a section.
type SectionSchema struct {
	Section Section
	Table   string
	// MultiRow sections hold several parallel live rows addressed by id.
	MultiRow bool
	// RowFields is the whitelist for sections whose rows are items themselves.
	RowFields []string
	Children  []Relation
}

// Sections returns every known section.
func Sections() []Section {
	out := make([]Section, len(allSections))
	copy(out, allSections)
	return out
}

// ParseSection validates a section name.
func ParseSection(name string) (Section, error) {
	s := Section(strings.ToLower(strings.TrimSpace(name)))
	if _, err := SchemaFor(s); err != nil {
		return "", err
	}
	return s, nil
}

// SchemaFor returns the registry entry for a section.
func SchemaFor(s Section) (SectionSchema, error) {
	switch s {
	case SectionHome:
		return SectionSchema{
			Section: s,
			Table:   "home",
			Children: []Relation{{
				Name:       "organizations",
				Table:      "home_organizations",
				ForeignKey: "homeId",
				Fields:     []string{"name", "role", "url", "imageUrl", "sortOrder"},
			}},
		}, nil
	case SectionAbout:
		return SectionSchema{
			Section: s,
			Table:   "about",
			Children: []Relation{
				{
					Name:       "skills",
					Table:      "about_skills",
					ForeignKey: "aboutId",
					Fields:     []string{"skill", "category", "sortOrder"},
				},
				{
					Name:       "interests",
					Table:      "about_interests",
					ForeignKey: "aboutId",
					Fields:     []string{"interest", "sortOrder"},
				},
			},
		}, nil
	case SectionAwards:
		return SectionSchema{
			Section:  s,
			Table:    "awards",
			MultiRow: true,
			Children: []Relation{{
				Name:       "items",
				Table:      "award_items",
				ForeignKey: "awardId",
				Fields:     []string{"title", "issuer", "date", "description", "awardImageUrl", "sortOrder"},
			}},
		}, nil
	case SectionEducation:
		return SectionSchema{
			Section:  s,
			Table:    "education",
			MultiRow: true,
			Children: []Relation{{
				Name:       "items",
				Table:      "education_items",
				ForeignKey: "educationId",
				Fields: []string{
					"school", "degree", "field", "location", "startDate", "endDate",
					"gpa", "description", "educationImageUrl", "sortOrder",
				},
			}},
		}, nil
	case SectionExperience:
		return SectionSchema{
			Section: s,
			Table:   "experience",
			Children: []Relation{
				{
					Name:       "professional",
					Table:      "experience_professional",
					ForeignKey: "experienceId",
					Fields:     []string{"company", "location", "url", "experienceImageUrl", "sortOrder"},
				},
				{
					Name:       "leadership",
					Table:      "experience_leadership",
					ForeignKey: "experienceId",
					Fields:     []string{"organization", "location", "url", "experienceImageUrl", "sortOrder"},
				},
			},
		}, nil
	case SectionGallery:
		return SectionSchema{
			Section:   s,
			Table:     "gallery",
			MultiRow:  true,
			RowFields: []string{"title", "caption", "imageUrl", "altText", "takenAt", "location", "sortOrder"},
		}, nil
	case SectionProjects:
		return SectionSchema{
			Section: s,
			Table:   "projects",
			Children: []Relation{{
				Name:       "items",
				Table:      "project_items",
				ForeignKey: "projectsId",
				Fields: []string{
					"title", "description", "imageUrl", "githubUrl", "liveUrl",
					"startDate", "endDate", "sortOrder",
				},
				Eager: true,
			}},
		}, nil
	default:
		return SectionSchema{}, fmt.Errorf("%w: %q", ErrUnknownSection, string(s))
	}
}

// Child resolves a child relation. An empty itemType selects the sole relation
// of single-relation sections.
func (s SectionSchema) Child(itemType string) (Relation, error) {
	itemType = strings.TrimSpace(itemType)
	if itemType == "" {
		if len(s.Children) == 1 {
			return s.Children[0], nil
		}
		return Relation{}, fmt.Errorf("%w: itemType is required for section %q", ErrUnknownItemType, string(s.Section))
	}
	want := naming.Flatten(itemType)
	for _, rel := range s.Children {
		if naming.Flatten(rel.Name) == want {
			return rel, nil
		}
	}
	return Relation{}, fmt.Errorf("%w: %q for section %q", ErrUnknownItemType, itemType, string(s.Section))
}

// ChildByTable finds the child relation stored in table.
func (s SectionSchema) ChildByTable(table string) (Relation, error) {
	table = strings.TrimSpace(table)
	for _, rel := range s.Children {
		if rel.Table == table {
			return rel, nil
		}
	}
	return Relation{}, fmt.Errorf("%w: table %q does not belong to section %q", ErrUnknownNestedType, table, string(s.Section))
}

// NestedRelations returns the nested relations hanging off a child table.
func NestedRelations(parentTable string) []Relation {
	switch parentTable {
	case "education_items":
		return []Relation{{
			Name:       "relevant_courses",
			Table:      "education_relevant_courses",
			ForeignKey: "educationItemId",
			Fields:     []string{"course", "sortOrder"},
		}}
	case "experience_professional":
		return []Relation{{
			Name:       "positions",
			Table:      "experience_professional_positions",
			ForeignKey: "professionalId",
			Fields:     []string{"title", "startDate", "endDate", "description", "sortOrder"},
		}}
	case "experience_leadership":
		return []Relation{{
			Name:       "roles",
			Table:      "experience_leadership_roles",
			ForeignKey: "leadershipId",
			Fields:     []string{"title", "startDate", "endDate", "description", "sortOrder"},
		}}
	case "project_items":
		return []Relation{
			{
				Name:       "technologies",
				Table:      "project_technologies",
				ForeignKey: "projectItemId",
				Fields:     []string{"technology", "sortOrder"},
			},
			{
				Name:       "highlights",
				Table:      "project_highlights",
				ForeignKey: "projectItemId",
				Fields:     []string{"highlight", "sortOrder"},
			},
		}
	default:
		return nil
	}
}

// Nested resolves a nested relation by parent table and nested type.
func Nested(parentTable, nestedType string) (Relation, error) {
	relations := NestedRelations(strings.TrimSpace(parentTable))
	if relations == nil {
		return Relation{}, fmt.Errorf("%w: no nested relations for table %q", ErrUnknownNestedType, parentTable)
	}
	want := naming.Flatten(strings.TrimSpace(nestedType))
	for _, rel := range relations {
		if naming.Flatten(rel.Name) == want {
			return rel, nil
		}
	}
	return Relation{}, fmt.Errorf("%w: %q for table %q", ErrUnknownNestedType, nestedType, parentTable)
}

// isImageField reports whether a column name (in any convention) is an asset reference.
func isImageField(key string) (string, bool) {
	flat := naming.Flatten(key)
	for _, field := range ImageFields {
		if naming.Flatten(field) == flat {
			return field, true
		}
	}
	return "", false
}
