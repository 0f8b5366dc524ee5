package filters

import (
	"errors"
	"strings"
	"testing"
	"text/template"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/temple/internal/apperr"
	"github.com/starford/temple/internal/datetime"
	"github.com/starford/temple/internal/settings"
)

var fixed = time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC)

func testEnv(zone string) Env {
	return Env{
		Localization:  datetime.Localization{Zone: zone},
		DefaultFormat: "yyyy-MM-dd HH:mm",
		Clock:         func() time.Time { return fixed },
	}
}

func execute(t *testing.T, env Env, text string, data any) (string, error) {
	t.Helper()
	tmpl, err := template.New("t").Funcs(FuncMap(env)).Parse(text)
	require.NoError(t, err)
	var b strings.Builder
	err = tmpl.Execute(&b, data)
	return b.String(), err
}

func TestNowUsesClockAndZone(t *testing.T) {
	v, err := Now(testEnv("Asia/Tokyo"), nil)
	require.NoError(t, err)
	dv := v.(datetime.Value)
	assert.True(t, dv.Time().Equal(fixed))
	assert.Equal(t, "Asia/Tokyo", dv.Zone())
}

func TestTodayIsMidnightAfterZoneOverride(t *testing.T) {
	v, err := Today(testEnv("Asia/Tokyo"), nil)
	require.NoError(t, err)
	got, err := v.(datetime.Value).Format("yyyy-MM-dd HH:mm")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-16 00:00", got)
}

func TestFormatDateDefaultFormat(t *testing.T) {
	got, err := FormatDate(testEnv("UTC"), []any{fixed.UnixMilli()})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15 23:30", got)

	got, err = FormatDate(testEnv("UTC"), []any{"", fixed})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15 23:30", got)
}

func TestFormatDateRejectsStrings(t *testing.T) {
	_, err := FormatDate(testEnv("UTC"), []any{"yyyy", "2024-03-15"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInputType))
}

func TestParseDateMissingArguments(t *testing.T) {
	cases := []struct {
		args []any
		want string
	}{
		{nil, "format"},
		{[]any{"", "2024-03-15"}, "format"},
		{[]any{nil, "2024-03-15"}, "format"},
		{[]any{"yyyy"}, "input"},
	}
	for _, tc := range cases {
		_, err := ParseDate(testEnv("UTC"), tc.args)
		require.Error(t, err)
		var missing *apperr.MissingArgumentError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, tc.want, missing.Argument, "%v", tc.args)
	}

	_, err := execute(t, testEnv("UTC"), `{{ parseDate "yyyy" }}`, nil)
	assert.ErrorContains(t, err, `"input"`)
}

func TestParseDateRoundTrip(t *testing.T) {
	v, err := ParseDate(testEnv("Europe/Paris"), []any{"yyyy-MM-dd", "2024-03-15"})
	require.NoError(t, err)
	dv := v.(datetime.Value)
	assert.Equal(t, "Europe/Paris", dv.Zone())
	got, err := dv.Format("yyyy-MM-dd HH:mm")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15 00:00", got)
}

func TestParseDateFailure(t *testing.T) {
	_, err := ParseDate(testEnv("UTC"), []any{"yyyy-MM-dd", "15/03/2024"})
	require.Error(t, err)
	var perr *apperr.DateTimeParsingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, datetime.ReasonUnparsable, perr.Reason)
}

func TestFuncMapInTemplates(t *testing.T) {
	env := testEnv("UTC")
	cases := map[string]string{
		`{{ now | formatDate "yyyy-MM-dd" }}`:                          "2024-03-15",
		`{{ today | formatDate "HH:mm" }}`:                             "00:00",
		`{{ formatDate "dd.MM.yyyy" now }}`:                            "15.03.2024",
		`{{ "2024-01-02" | parseDate "yyyy-MM-dd" | formatDate "d" }}`: "2",
		`{{ now | formatDate }}`:                                       "2024-03-15 23:30",
		`{{ "hello" | upper }}`:                                        "HELLO",
	}
	for text, want := range cases {
		got, err := execute(t, env, text, nil)
		require.NoError(t, err, text)
		assert.Equal(t, want, got, text)
	}
}

func TestFuncMapOverridesSprig(t *testing.T) {
	fm := FuncMap(testEnv("UTC"))
	_, ok := fm["now"].(func(...any) (any, error))
	assert.True(t, ok, "now must be the date filter, not sprig's")
	assert.Contains(t, fm, "trim")
}

func TestFilterErrorsSurviveTemplateWrapping(t *testing.T) {
	_, err := execute(t, testEnv("UTC"), `{{ "x" | parseDate "yyyy" }}`, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrDateTimeParsing))
}

func TestEnvFor(t *testing.T) {
	env := EnvFor(settings.DateTimeSettings{DefaultFormat: "HH", Locale: "fr", Timezone: "UTC"}, nil)
	assert.Equal(t, "HH", env.DefaultFormat)
	assert.Equal(t, datetime.Localization{Locale: "fr", Zone: "UTC"}, env.Localization)
	assert.WithinDuration(t, time.Now(), env.now(), time.Minute)
}
