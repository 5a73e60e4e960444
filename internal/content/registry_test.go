package content

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEverySectionHasASchema(t *testing.T) {
	t.Parallel()

	for _, s := range Sections() {
		schema, err := SchemaFor(s)
		require.NoError(t, err, "section %s", s)
		assert.Equal(t, s, schema.Section)
		assert.NotEmpty(t, schema.Table)
		for _, rel := range schema.Children {
			assert.NotEmpty(t, rel.Table)
			assert.NotEmpty(t, rel.ForeignKey)
			assert.NotEmpty(t, rel.Fields)
		}
	}
}

func TestParseSection(t *testing.T) {
	t.Parallel()

	s, err := ParseSection(" Education ")
	require.NoError(t, err)
	assert.Equal(t, SectionEducation, s)

	_, err = ParseSection("blog")
	assert.True(t, errors.Is(err, ErrUnknownSection))
	assert.True(t, IsClientError(err))
}

func TestChildDefaultsToSoleRelation(t *testing.T) {
	t.Parallel()

	schema, err := SchemaFor(SectionEducation)
	require.NoError(t, err)
	rel, err := schema.Child("")
	require.NoError(t, err)
	assert.Equal(t, "education_items", rel.Table)
	assert.Equal(t, "educationId", rel.ForeignKey)
}

func TestChildRequiresItemTypeWhenAmbiguous(t *testing.T) {
	t.Parallel()

	schema, err := SchemaFor(SectionAbout)
	require.NoError(t, err)

	_, err = schema.Child("")
	assert.True(t, errors.Is(err, ErrUnknownItemType))

	rel, err := schema.Child("Skills")
	require.NoError(t, err)
	assert.Equal(t, "about_skills", rel.Table)

	_, err = schema.Child("hobbies")
	assert.True(t, errors.Is(err, ErrUnknownItemType))
}

func TestGalleryHasRowFieldsAndNoChildren(t *testing.T) {
	t.Parallel()

	schema, err := SchemaFor(SectionGallery)
	require.NoError(t, err)
	assert.True(t, schema.MultiRow)
	assert.Contains(t, schema.RowFields, "imageUrl")
	_, err = schema.Child("")
	assert.True(t, errors.Is(err, ErrUnknownItemType))
}

func TestNestedLookup(t *testing.T) {
	t.Parallel()

	rel, err := Nested("education_items", "relevantCourses")
	require.NoError(t, err)
	assert.Equal(t, "education_relevant_courses", rel.Table)
	assert.Equal(t, "educationItemId", rel.ForeignKey)

	rel, err = Nested("experience_professional", "positions")
	require.NoError(t, err)
	assert.Equal(t, "professionalId", rel.ForeignKey)

	rel, err = Nested("project_items", "technologies")
	require.NoError(t, err)
	assert.Equal(t, "projectItemId", rel.ForeignKey)

	_, err = Nested("project_items", "screenshots")
	assert.True(t, errors.Is(err, ErrUnknownNestedType))

	_, err = Nested("home", "anything")
	assert.True(t, errors.Is(err, ErrUnknownNestedType))
}

func TestChildByTable(t *testing.T) {
	t.Parallel()

	schema, err := SchemaFor(SectionExperience)
	require.NoError(t, err)
	rel, err := schema.ChildByTable("experience_leadership")
	require.NoError(t, err)
	assert.Equal(t, "leadership", rel.Name)

	_, err = schema.ChildByTable("education_items")
	assert.True(t, errors.Is(err, ErrUnknownNestedType))
}

func TestIsImageField(t *testing.T) {
	t.Parallel()

	field, ok := isImageField("education_image_url")
	assert.True(t, ok)
	assert.Equal(t, "educationImageUrl", field)

	_, ok = isImageField("title")
	assert.False(t, ok)
}
