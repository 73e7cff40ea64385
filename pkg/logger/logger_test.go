package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chronicle/pkg/logger"
)

func decodeLine(buf *bytes.Buffer) map[string]any {
	var parsed map[string]any
	Expect(json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &parsed)).To(Succeed())
	return parsed
}

type failingHandler struct{ calls int }

func (h *failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *failingHandler) Handle(context.Context, slog.Record) error {
	h.calls++
	return errors.New("disk full")
}
func (h *failingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *failingHandler) WithGroup(string) slog.Handler      { return h }

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("writes text at info by default", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf))
			l.Debug("hidden")
			l.Info("record stored", "id", "r1")

			Expect(buf.String()).NotTo(ContainSubstring("hidden"))
			Expect(buf.String()).To(ContainSubstring("record stored"))
			Expect(buf.String()).To(ContainSubstring("id=r1"))
		})

		It("writes JSON", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithFormat(logger.FormatJSON))
			l.Info("query answered", "hits", 3)

			parsed := decodeLine(&buf)
			Expect(parsed["msg"]).To(Equal("query answered"))
			Expect(parsed["hits"]).To(BeNumerically("==", 3))
		})

		It("writes pretty output", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithFormat(logger.FormatPretty))
			l.Warn("vector backend unavailable")

			Expect(buf.String()).To(ContainSubstring("vector backend unavailable"))
		})

		It("honors an explicit level", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithLevel(slog.LevelWarn))
			l.Info("quiet")
			l.Warn("loud")

			Expect(buf.String()).NotTo(ContainSubstring("quiet"))
			Expect(buf.String()).To(ContainSubstring("loud"))
		})

		It("lets debug lower but never raise the level", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithLevel(slog.LevelError), logger.WithDebug(true))
			l.Debug("verbose")
			Expect(buf.String()).To(ContainSubstring("verbose"))

			buf.Reset()
			l = logger.New(logger.WithWriter(&buf), logger.WithLevel(slog.LevelDebug), logger.WithDebug(false))
			l.Debug("still verbose")
			Expect(buf.String()).To(ContainSubstring("still verbose"))
		})

		It("writes to every writer", func() {
			var a, b bytes.Buffer
			logger.New(logger.WithWriters(&a, &b)).Info("both")

			Expect(a.String()).To(ContainSubstring("both"))
			Expect(b.String()).To(ContainSubstring("both"))
		})
	})

	Describe("ParseFormat", func() {
		It("accepts known formats case-insensitively", func() {
			f, err := logger.ParseFormat(" JSON ")
			Expect(err).NotTo(HaveOccurred())
			Expect(f).To(Equal(logger.FormatJSON))

			f, err = logger.ParseFormat("")
			Expect(err).NotTo(HaveOccurred())
			Expect(f).To(Equal(logger.FormatText))
		})

		It("rejects unknown formats", func() {
			_, err := logger.ParseFormat("xml")
			Expect(err).To(MatchError(ContainSubstring("unknown log format")))
		})
	})

	Describe("ParseLevel", func() {
		DescribeTable("maps names to levels",
			func(in string, want slog.Level) {
				got, err := logger.ParseLevel(in)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal(want))
			},
			Entry("empty", "", slog.LevelInfo),
			Entry("debug", "debug", slog.LevelDebug),
			Entry("warning", "Warning", slog.LevelWarn),
			Entry("error", "error", slog.LevelError),
		)

		It("rejects unknown levels", func() {
			_, err := logger.ParseLevel("trace")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Nop", func() {
		It("is disabled at every level and safe to use", func() {
			l := logger.Nop()
			Expect(l.Handler().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
			Expect(func() {
				l.With("k", "v").WithGroup("g").Error("dropped")
			}).NotTo(Panic())
		})
	})

	Describe("Multi", func() {
		It("sends each record to every logger at its own level", func() {
			var pretty, file bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(&pretty)),
				logger.New(logger.WithWriter(&file), logger.WithFormat(logger.FormatJSON), logger.WithDebug(true)),
			)

			multi.Debug("hydrating", "hits", 2)

			Expect(pretty.String()).To(BeEmpty())
			Expect(decodeLine(&file)["msg"]).To(Equal("hydrating"))
		})

		It("carries attrs and groups to every handler", func() {
			var buf bytes.Buffer
			multi := logger.Multi(logger.New(logger.WithWriter(&buf), logger.WithFormat(logger.FormatJSON)))

			multi.With("component", "repair").WithGroup("job").Info("retrying", "point", "p1")

			parsed := decodeLine(&buf)
			Expect(parsed["component"]).To(Equal("repair"))
			Expect(parsed["job"]).To(HaveKeyWithValue("point", "p1"))
		})

		It("keeps writing when one handler fails", func() {
			var buf bytes.Buffer
			failing := &failingHandler{}
			multi := logger.Multi(slog.New(failing), nil, logger.New(logger.WithWriter(&buf)))

			multi.Info("still logged")

			Expect(failing.calls).To(Equal(1))
			Expect(buf.String()).To(ContainSubstring("still logged"))
		})

		It("is disabled when every logger is", func() {
			multi := logger.Multi(logger.Nop(), logger.Nop())
			Expect(multi.Handler().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
		})
	})
})
