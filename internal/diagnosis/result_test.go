package diagnosis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAllFields(t *testing.T) {
	res, err := Parse([]byte(`{"classification":"glaucoma","detail":"Large cup","ratio":0.71,"annotated_image_url":"https://cdn.example/a.png","extra":true}`))
	require.NoError(t, err)
	require.Equal(t, "glaucoma", res.Classification)
	require.Equal(t, "Large cup", res.Detail)
	require.NotNil(t, res.Ratio)
	require.InDelta(t, 0.71, *res.Ratio, 1e-9)
	require.True(t, res.HasImage())
	require.Equal(t, "0.71", res.FormatRatio())
}

func TestParseMissingOptionalFields(t *testing.T) {
	res, err := Parse([]byte(`{"classification":"glaucoma suspect","detail":"Increased CDR","ratio":0.63}`))
	require.NoError(t, err)
	require.Equal(t, "glaucoma suspect", res.Label())
	require.Equal(t, "0.63", res.FormatRatio())
	require.False(t, res.HasImage())
}

func TestParseFallbackKeys(t *testing.T) {
	res, err := Parse([]byte(`{"final_classification":"non-glaucoma","details":"Normal disc","cdr":"0.3"}`))
	require.NoError(t, err)
	require.Equal(t, "non-glaucoma", res.Classification)
	require.Equal(t, "Normal disc", res.Detail)
	require.Equal(t, "0.30", res.FormatRatio())
}

func TestParseZeroRatioIsKept(t *testing.T) {
	res, err := Parse([]byte(`{"ratio":0,"cdr":0.5}`))
	require.NoError(t, err)
	require.Equal(t, "0.00", res.FormatRatio())
}

func TestParseMistypedFieldsAreDropped(t *testing.T) {
	res, err := Parse([]byte(`{"classification":42,"detail":["x"],"ratio":"high","annotated_image_url":{"u":1}}`))
	require.NoError(t, err)
	require.Empty(t, res.Classification)
	require.Empty(t, res.Detail)
	require.Nil(t, res.Ratio)
	require.Equal(t, "—", res.FormatRatio())
	require.Equal(t, "Unknown", res.Label())
	require.False(t, res.HasImage())

	for _, body := range []string{`{"ratio":"NaN"}`, `{"cdr":"Inf"}`, `{"ratio":"+Inf","cdr":"-inf"}`} {
		res, err := Parse([]byte(body))
		require.NoError(t, err)
		require.Nilf(t, res.Ratio, "body %s", body)
		require.Equal(t, "—", res.FormatRatio())
	}

	res, err = Parse([]byte(`{"ratio":"NaN","cdr":0.4}`))
	require.NoError(t, err)
	require.Equal(t, "0.40", res.FormatRatio())
}

func TestParseRejectsNonObjects(t *testing.T) {
	for _, body := range []string{"", "<html>oops</html>", "[1,2]", `"text"`, "{broken"} {
		_, err := Parse([]byte(body))
		require.Truef(t, errors.Is(err, ErrNotObject), "body %q: got %v", body, err)
	}
}

func TestHasImageRequiresAbsoluteHTTP(t *testing.T) {
	cases := map[string]bool{
		"https://x.example/a.png": true,
		"http://x.example/a.png":  true,
		"/static/a.png":           false,
		"ftp://x.example/a.png":   false,
		"javascript:alert(1)":     false,
		"":                        false,
	}
	for raw, want := range cases {
		res := &Result{AnnotatedImageURL: raw}
		require.Equalf(t, want, res.HasImage(), "url %q", raw)
	}
}

func TestPrettyRawIndents(t *testing.T) {
	res, err := Parse([]byte(`{"ratio":0.5}`))
	require.NoError(t, err)
	require.Equal(t, "{\n  \"ratio\": 0.5\n}", res.PrettyRaw())
}

func TestBadgeFor(t *testing.T) {
	require.Equal(t, BadgeGreen, BadgeFor("Non-Glaucoma"))
	require.Equal(t, BadgeAmber, BadgeFor("glaucoma suspect"))
	require.Equal(t, BadgeRed, BadgeFor("Glaucoma"))
	require.Equal(t, BadgeRed, BadgeFor("Unknown"))
}
