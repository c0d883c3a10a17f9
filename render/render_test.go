package render

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/lance0/logsynth/fields"
)

func sampleRecord() *fields.Record {
	rec := fields.NewRecord(4)
	rec.Set("ts", "2024-03-01T12:00:00")
	rec.Set("level", "INFO")
	rec.Set("status", int64(200))
	rec.Set("latency", 0.25)
	return rec
}

func Test_New(t *testing.T) {
	Convey("New()", t, func() {
		Convey("rejects unknown formats", func() {
			_, err := New("xml", "")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "unknown format")
		})

		Convey("rejects a broken template pattern", func() {
			_, err := New(FormatTemplate, "{{ .level")
			So(err, ShouldNotBeNil)
		})

		Convey("Valid() agrees with Formats()", func() {
			for _, format := range Formats() {
				So(Valid(format), ShouldBeTrue)
			}
			So(Valid("csv"), ShouldBeFalse)
		})
	})
}

func Test_PlainRenderer(t *testing.T) {
	Convey("plain renderer", t, func() {
		Convey("substitutes $name and ${name} placeholders", func() {
			r, err := New(FormatPlain, "[$ts] ${level} status=$status")
			So(err, ShouldBeNil)

			line, err := r.Render(sampleRecord())
			So(err, ShouldBeNil)
			So(line, ShouldEqual, "[2024-03-01T12:00:00] INFO status=200")
		})

		Convey("absent fields render as empty text, not an error", func() {
			r, _ := New(FormatPlain, "$level $missing end")

			line, err := r.Render(sampleRecord())
			So(err, ShouldBeNil)
			So(line, ShouldEqual, "INFO  end")
		})

		Convey("trims surrounding whitespace left by empty placeholders", func() {
			r, _ := New(FormatPlain, "$missing $level")

			line, err := r.Render(sampleRecord())
			So(err, ShouldBeNil)
			So(line, ShouldEqual, "INFO")
		})
	})
}

func Test_JSONRenderer(t *testing.T) {
	Convey("json renderer", t, func() {
		r, err := New(FormatJSON, "")
		So(err, ShouldBeNil)

		line, err := r.Render(sampleRecord())
		So(err, ShouldBeNil)

		Convey("preserves declaration order and value types", func() {
			So(line, ShouldEqual,
				`{"ts":"2024-03-01T12:00:00","level":"INFO","status":200,"latency":0.25}`)
		})

		Convey("produces parseable JSON", func() {
			var decoded map[string]any
			So(json.Unmarshal([]byte(line), &decoded), ShouldBeNil)
			So(decoded["status"], ShouldEqual, 200)
			So(decoded["level"], ShouldEqual, "INFO")
		})
	})
}

func Test_LogfmtRenderer(t *testing.T) {
	Convey("logfmt renderer", t, func() {
		r, err := New(FormatLogfmt, "")
		So(err, ShouldBeNil)

		Convey("writes key=value pairs in field order", func() {
			line, err := r.Render(sampleRecord())
			So(err, ShouldBeNil)
			So(line, ShouldEqual, "ts=2024-03-01T12:00:00 level=INFO status=200 latency=0.25")
		})

		Convey("quotes values containing whitespace or '='", func() {
			rec := fields.NewRecord(2)
			rec.Set("msg", "disk is full")
			rec.Set("query", "a=b")

			line, err := r.Render(rec)
			So(err, ShouldBeNil)
			So(line, ShouldEqual, `msg="disk is full" query="a=b"`)
		})
	})
}

func Test_TemplateRenderer(t *testing.T) {
	Convey("template renderer", t, func() {
		Convey("interpolates variables", func() {
			r, err := New(FormatTemplate, "{{ .level }}: status {{ .status }}")
			So(err, ShouldBeNil)

			line, err := r.Render(sampleRecord())
			So(err, ShouldBeNil)
			So(line, ShouldEqual, "INFO: status 200")
		})

		Convey("supports conditionals and filters", func() {
			r, err := New(FormatTemplate,
				`{{ if eq .level "INFO" }}{{ lower .level }}{{ else }}other{{ end }}`)
			So(err, ShouldBeNil)

			line, err := r.Render(sampleRecord())
			So(err, ShouldBeNil)
			So(line, ShouldEqual, "info")
		})
	})
}

func Test_Stringify(t *testing.T) {
	Convey("Stringify()", t, func() {
		So(Stringify("x"), ShouldEqual, "x")
		So(Stringify(int64(42)), ShouldEqual, "42")
		So(Stringify(7), ShouldEqual, "7")
		So(Stringify(2.50), ShouldEqual, "2.5")
		So(Stringify(true), ShouldEqual, "true")
	})
}
