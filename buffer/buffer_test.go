package buffer_test

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/vroom/buffer"
	"github.com/google/vroom/result"
	"github.com/google/vroom/script"
	. "github.com/onsi/gomega"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"
)

func TestUnitBuffer(t *testing.T) {
	spec.Run(t, "Testing the Buffer verifier", testBuffer, spec.Report(report.Terminal{}))
}

func testBuffer(t *testing.T, when spec.G, it spec.S) {
	var (
		ctrl    *gomock.Controller
		source  *MockSource
		manager *buffer.Manager
		ctx     context.Context
	)

	it.Before(func() {
		RegisterTestingT(t)
		ctrl = gomock.NewController(t)
		source = NewMockSource(ctrl)
		manager = buffer.NewManager(source)
		ctx = context.Background()
	})

	it.After(func() {
		ctrl.Finish()
	})

	when("Verify()", func() {
		it("walks consecutive expectations down the buffer", func() {
			source.EXPECT().GetBufferLines(gomock.Any(), 0).
				Return([]string{"one", "two", "three"}, nil).Times(1)

			Expect(manager.Verify(ctx, "one", script.Controls{})).To(Succeed())
			Expect(manager.Verify(ctx, "two", script.Controls{})).To(Succeed())
			Expect(manager.Verify(ctx, "three", script.Controls{})).To(Succeed())
		})

		it("reloads when a buffer is requested explicitly", func() {
			gomock.InOrder(
				source.EXPECT().GetBufferLines(gomock.Any(), 2).
					Return([]string{"alpha"}, nil),
				source.EXPECT().GetBufferLines(gomock.Any(), 2).
					Return([]string{"alpha"}, nil),
			)

			controls := script.Controls{Buffer: 2, HasBuffer: true}
			Expect(manager.Verify(ctx, "alpha", controls)).To(Succeed())
			// Same number again still resets the cursor to the top.
			Expect(manager.Verify(ctx, "alpha", controls)).To(Succeed())
		})

		it("refetches after an Unload", func() {
			gomock.InOrder(
				source.EXPECT().GetBufferLines(gomock.Any(), 0).Return([]string{"a"}, nil),
				source.EXPECT().GetBufferLines(gomock.Any(), 0).Return([]string{"b"}, nil),
			)

			Expect(manager.Verify(ctx, "a", script.Controls{})).To(Succeed())
			manager.Unload()
			Expect(manager.Verify(ctx, "b", script.Controls{})).To(Succeed())
		})

		it("checks an absolute range line by line", func() {
			source.EXPECT().GetBufferLines(gomock.Any(), 0).
				Return([]string{"x", "same", "same", "same", "x"}, nil)

			controls := script.Controls{Span: script.Span{
				Start: 2, EndKind: script.EndAbsolute, End: 4,
			}}
			Expect(manager.Verify(ctx, "same", controls)).To(Succeed())
		})

		it("checks a relative range from the cursor", func() {
			source.EXPECT().GetBufferLines(gomock.Any(), 0).
				Return([]string{"first", "r", "r", "r", "x"}, nil)

			Expect(manager.Verify(ctx, "first", script.Controls{})).To(Succeed())
			controls := script.Controls{Span: script.Span{EndKind: script.EndRelative, End: 2}}
			Expect(manager.Verify(ctx, "r", controls)).To(Succeed())
			Expect(manager.Verify(ctx, "x", script.Controls{})).To(Succeed())
		})

		it("checks through the end of the buffer", func() {
			source.EXPECT().GetBufferLines(gomock.Any(), 0).
				Return([]string{"z", "z", "z"}, nil)

			controls := script.Controls{Span: script.Span{EndKind: script.EndOfBuffer}}
			Expect(manager.Verify(ctx, "z", controls)).To(Succeed())
		})

		it("resolves the cursor token against the live position", func() {
			source.EXPECT().GetBufferLines(gomock.Any(), 0).
				Return([]string{"skip", "skip", "here"}, nil)
			source.EXPECT().GetCurrentLine(gomock.Any()).Return(3, nil)

			controls := script.Controls{Span: script.Span{Cursor: true}}
			Expect(manager.Verify(ctx, "here", controls)).To(Succeed())
		})

		it("matches under glob and regex modes", func() {
			source.EXPECT().GetBufferLines(gomock.Any(), 0).
				Return([]string{"Hello, world!", "E492: nope"}, nil)

			Expect(manager.Verify(ctx, "Hello*",
				script.Controls{Mode: script.ModeGlob})).To(Succeed())
			Expect(manager.Verify(ctx, `E\d+: \w+`,
				script.Controls{Mode: script.ModeRegex})).To(Succeed())
		})

		it("fails on the first mismatching line with its context", func() {
			source.EXPECT().GetBufferLines(gomock.Any(), 0).
				Return([]string{"good", "bad", "never seen"}, nil)

			Expect(manager.Verify(ctx, "good", script.Controls{})).To(Succeed())
			err := manager.Verify(ctx, "good", script.Controls{})
			Expect(err).To(HaveOccurred())
			failure, ok := err.(*result.Failure)
			Expect(ok).To(BeTrue())
			Expect(failure.Desc).To(Equal(`Expected "good" in verbatim mode.`))
			Expect(failure.Context.Buffer).NotTo(BeNil())
			Expect(failure.Context.Buffer.Line).To(Equal(1))
			Expect(failure.Context.Buffer.Lines).To(Equal([]string{"good", "bad", "never seen"}))
		})

		it("fails with a shortage when the range outruns the buffer", func() {
			source.EXPECT().GetBufferLines(gomock.Any(), 0).
				Return([]string{"only"}, nil)

			controls := script.Controls{Span: script.Span{
				Start: 1, EndKind: script.EndAbsolute, End: 3,
			}}
			err := manager.Verify(ctx, "only", controls)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(Equal("Unexpected end of buffer."))
		})

		it("propagates a broken expectation pattern", func() {
			source.EXPECT().GetBufferLines(gomock.Any(), 0).
				Return([]string{"line"}, nil)

			err := manager.Verify(ctx, `*(`, script.Controls{Mode: script.ModeRegex})
			Expect(err).To(HaveOccurred())
			_, isFailure := err.(*result.Failure)
			Expect(isFailure).To(BeFalse())
		})
	})

	when("EnsureAtEnd()", func() {
		it("passes once inspection reached the last line", func() {
			source.EXPECT().GetBufferLines(gomock.Any(), 0).
				Return([]string{"one", "two"}, nil)

			Expect(manager.Verify(ctx, "one", script.Controls{})).To(Succeed())
			Expect(manager.Verify(ctx, "two", script.Controls{})).To(Succeed())
			Expect(manager.EnsureAtEnd(ctx, script.Controls{})).To(Succeed())
		})

		it("passes vacuously on an untouched empty buffer", func() {
			source.EXPECT().GetBufferLines(gomock.Any(), 0).Return(nil, nil)
			Expect(manager.EnsureAtEnd(ctx, script.Controls{})).To(Succeed())
		})

		it("passes vacuously on an untouched single-blank buffer", func() {
			source.EXPECT().GetBufferLines(gomock.Any(), 0).Return([]string{""}, nil)
			Expect(manager.EnsureAtEnd(ctx, script.Controls{})).To(Succeed())
		})

		it("flags misuse on any other untouched buffer", func() {
			source.EXPECT().GetBufferLines(gomock.Any(), 0).
				Return([]string{"content"}, nil)

			err := manager.EnsureAtEnd(ctx, script.Controls{})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(Equal("Misuse of @end: buffer has not been checked yet."))
		})

		it("fails when inspection stopped short of the end", func() {
			source.EXPECT().GetBufferLines(gomock.Any(), 0).
				Return([]string{"one", "two", "three"}, nil)

			Expect(manager.Verify(ctx, "one", script.Controls{})).To(Succeed())
			err := manager.EnsureAtEnd(ctx, script.Controls{})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(Equal("Expected end of buffer."))
		})

		it("loads the requested buffer before checking", func() {
			source.EXPECT().GetBufferLines(gomock.Any(), 3).Return(nil, nil)
			controls := script.Controls{Buffer: 3, HasBuffer: true}
			Expect(manager.EnsureAtEnd(ctx, controls)).To(Succeed())
		})
	})
}
