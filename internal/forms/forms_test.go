package forms

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/formflow/pkg/api"
)

var page1 = New("Page1", Text("name", 100), Bool("thirsty"))

func bind(d api.FormDescriptor, data url.Values) api.Form {
	return d.NewForm(api.Binding{Step: "0", Data: data})
}

func TestForm_UnboundIsNeverValid(t *testing.T) {
	f := page1.NewForm(api.Binding{})
	assert.False(t, f.IsBound())
	assert.False(t, f.IsValid())
	assert.Empty(t, f.Errors())
	assert.Empty(t, f.CleanedData())
}

func TestForm_ValidSubmissionCleansTypes(t *testing.T) {
	f := bind(page1, url.Values{"name": {" test "}, "thirsty": {"on"}})
	require.True(t, f.IsValid())
	assert.Equal(t, map[string]any{"name": "test", "thirsty": true}, f.CleanedData())
}

func TestForm_RequiredFields(t *testing.T) {
	f := bind(page1, url.Values{"name": {"test"}})
	require.False(t, f.IsValid())
	assert.Equal(t, map[string][]string{"thirsty": {MsgRequired}}, f.Errors())
}

func TestForm_MaxLength(t *testing.T) {
	s := New("short", Text("code", 3))
	f := bind(s, url.Values{"code": {"abcd"}})
	require.False(t, f.IsValid())
	assert.Contains(t, f.Errors()["code"][0], "at most 3 characters")
}

func TestForm_FieldKinds(t *testing.T) {
	s := New("kinds",
		Int("age").Between(18, 99),
		Email("email"),
		Select("color", "red", "green"),
		MultiSelect("tags", "a", "b", "c"),
		Date("born"),
		Text("nickname", 0).Optional(),
		Int("children").Optional(),
	)

	f := bind(s, url.Values{
		"age":   {"42"},
		"email": {"jane@example.com"},
		"color": {"green"},
		"tags":  {"a", "c"},
		"born":  {"1983-04-01"},
	})
	require.True(t, f.IsValid(), "errors: %v", f.Errors())

	cleaned := f.CleanedData()
	assert.Equal(t, int64(42), cleaned["age"])
	assert.Equal(t, "jane@example.com", cleaned["email"])
	assert.Equal(t, "green", cleaned["color"])
	assert.Equal(t, []string{"a", "c"}, cleaned["tags"])
	assert.Equal(t, time.Date(1983, 4, 1, 0, 0, 0, 0, time.UTC), cleaned["born"])
	assert.Equal(t, "", cleaned["nickname"])
	assert.Nil(t, cleaned["children"])
}

func TestForm_FieldKindErrors(t *testing.T) {
	s := New("kinds",
		Int("age").Between(18, 99),
		Email("email"),
		Select("color", "red", "green"),
		Date("born"),
	)

	f := bind(s, url.Values{
		"age":   {"12"},
		"email": {"not-an-address"},
		"color": {"blue"},
		"born":  {"01/04/1983"},
	})
	require.False(t, f.IsValid())

	errs := f.Errors()
	assert.Equal(t, []string{"Ensure this value is greater than or equal to 18."}, errs["age"])
	assert.Equal(t, []string{MsgInvalidEmail}, errs["email"])
	assert.Equal(t, []string{"Select a valid choice. blue is not one of the available choices."}, errs["color"])
	assert.Equal(t, []string{MsgInvalidDate}, errs["born"])
}

func TestForm_FileField(t *testing.T) {
	s := New("upload", FileUpload("cv"))
	require.True(t, s.AcceptsFiles())

	missing := s.NewForm(api.Binding{Data: url.Values{}})
	assert.False(t, missing.IsValid())

	ref := api.File{Field: "cv", Name: "cv.pdf", Size: 10}
	f := s.NewForm(api.Binding{Data: url.Values{}, Files: api.Files{"cv": ref}})
	require.True(t, f.IsValid())
	assert.Equal(t, ref, f.CleanedData()["cv"])
}

func TestForm_CheckRunsAfterFields(t *testing.T) {
	s := New("pw", Text("password", 0), Text("confirm", 0)).WithCheck(func(c map[string]any) error {
		if c["password"] != c["confirm"] {
			return errors.New("Passwords do not match.")
		}
		return nil
	})

	f := bind(s, url.Values{"password": {"a"}, "confirm": {"b"}})
	require.False(t, f.IsValid())
	assert.Equal(t, []string{"Passwords do not match."}, f.Errors()[NonFieldErrors])

	f = bind(s, url.Values{"password": {"a"}, "confirm": {"a"}})
	assert.True(t, f.IsValid())
}

func TestForm_DescribeUsesInitialWhenUnbound(t *testing.T) {
	f := page1.NewForm(api.Binding{
		Initial:  map[string]any{"name": "from-initial"},
		Instance: map[string]any{"name": "from-instance", "thirsty": true},
	})

	view := f.(api.Describer).Describe().(View)
	require.Len(t, view.Fields, 2)
	assert.Equal(t, "from-initial", view.Fields[0].Value)
	assert.Equal(t, true, view.Fields[1].Value)
}

func TestForm_DescribeShowsSubmittedValuesAndErrors(t *testing.T) {
	f := bind(page1, url.Values{"name": {"x"}})
	view := f.(api.Describer).Describe().(View)
	assert.Equal(t, "x", view.Fields[0].Value)
	assert.Equal(t, []string{MsgRequired}, view.Fields[1].Errors)
}

func TestNew_PanicsOnDuplicateField(t *testing.T) {
	assert.Panics(t, func() { New("dup", Text("a", 0), Text("a", 0)) })
	assert.Panics(t, func() { New("", Text("a", 0)) })
	assert.Panics(t, func() { New("bad", Field{Name: "x", Kind: "slider"}) })
}

func TestFormSet_CleanedList(t *testing.T) {
	page3 := New("Page3", Text("random_crap", 100))
	fs := NewFormSet(page3, 2)

	f := bind(fs, url.Values{
		"form-TOTAL_FORMS":    {"2"},
		"form-0-random_crap": {"one"},
		"form-1-random_crap": {"two"},
	})
	require.True(t, f.IsValid(), "errors: %v", f.Errors())

	lf, ok := f.(api.ListForm)
	require.True(t, ok)
	assert.Equal(t, []map[string]any{{"random_crap": "one"}, {"random_crap": "two"}}, lf.CleanedList())
}

func TestFormSet_ErrorsArePrefixed(t *testing.T) {
	fs := NewFormSet(New("Page3", Text("random_crap", 100)), 1)
	f := bind(fs, url.Values{
		"form-TOTAL_FORMS":    {"2"},
		"form-0-random_crap": {"one"},
	})
	require.False(t, f.IsValid())
	assert.Equal(t, map[string][]string{"form-1-random_crap": {MsgRequired}}, f.Errors())
}

func TestFormSet_ManagementData(t *testing.T) {
	fs := NewFormSet(New("Page3", Text("random_crap", 100)), 1).WithBounds(1, 2)

	missing := bind(fs, url.Values{})
	assert.False(t, missing.IsValid())
	assert.Contains(t, missing.Errors()[NonFieldErrors][0], "ManagementForm")

	tooMany := bind(fs, url.Values{"form-TOTAL_FORMS": {"3"}})
	assert.False(t, tooMany.IsValid())
	assert.Equal(t, []string{"Please submit at most 2 forms."}, tooMany.Errors()[NonFieldErrors])
}

func TestFormSet_UnboundShowsExtraForms(t *testing.T) {
	fs := NewFormSet(New("Page3", Text("random_crap", 100)), 2)
	f := fs.NewForm(api.Binding{})
	assert.False(t, f.IsBound())

	view := f.(api.Describer).Describe().(map[string]any)
	assert.Equal(t, 2, view["total_forms"])
	assert.Equal(t, "Page3_set", fs.Name())
}
