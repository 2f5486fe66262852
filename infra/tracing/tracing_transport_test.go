package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/mocktracer"
)

type alwaysFailedTransport struct{}

func (t *alwaysFailedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return nil, errors.New("mock error")
}

func TestTracingTransport(t *testing.T) {
	RegisterTestingT(t)

	tracer := mocktracer.New()
	opentracing.SetGlobalTracer(tracer)

	var seenSpanHeader string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenSpanHeader = r.Header.Get("Mockpfx-Ids-Spanid")
		if r.URL.Path == "/v1/users" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	tracedGet := func(target string, transport http.RoundTripper) (*http.Response, error, opentracing.Span) {
		client := &http.Client{Transport: &TracingTransport{Transport: transport}}
		req, err := http.NewRequest(http.MethodGet, target, nil)
		Expect(err).To(BeNil())
		parent := tracer.StartSpan("client")
		req = req.WithContext(opentracing.ContextWithSpan(context.Background(), parent))
		res, err := client.Do(req)
		parent.Finish()
		return res, err, parent
	}

	t.Run("no span in context", func(t *testing.T) {
		tracer.Reset()

		client := &http.Client{Transport: &TracingTransport{}}
		res, err := client.Get(ts.URL + "/v1/orders")
		Expect(err).To(BeNil())
		Expect(res.StatusCode).To(Equal(http.StatusOK))
		Expect(len(tracer.FinishedSpans())).To(BeZero())
	})

	t.Run("child span of the caller", func(t *testing.T) {
		tracer.Reset()

		res, err, _ := tracedGet(ts.URL+"/v1/orders", http.DefaultTransport)
		Expect(err).To(BeNil())
		Expect(res.StatusCode).To(Equal(http.StatusOK))

		spans := tracer.FinishedSpans()
		Expect(len(spans)).To(Equal(2))
		child, parent := spans[0], spans[1]
		Expect(child.OperationName).To(Equal("GET /v1/orders"))
		Expect(child.ParentID).To(Equal(parent.SpanContext.SpanID))
		Expect(seenSpanHeader).ToNot(BeEmpty())
		Expect(child.Tags()).To(Equal(map[string]interface{}{
			"span.kind":        ext.SpanKindEnum("client"),
			"http.url":         ts.URL + "/v1/orders",
			"http.method":      "GET",
			"http.status_code": uint16(200),
			"error":            false,
		}))
	})

	t.Run("error status", func(t *testing.T) {
		tracer.Reset()

		res, err, _ := tracedGet(ts.URL+"/v1/users", http.DefaultTransport)
		Expect(err).To(BeNil())
		Expect(res.StatusCode).To(Equal(http.StatusBadRequest))

		spans := tracer.FinishedSpans()
		Expect(len(spans)).To(Equal(2))
		Expect(spans[0].Tag("http.status_code")).To(Equal(uint16(400)))
		Expect(spans[0].Tag("error")).To(Equal(true))
	})

	t.Run("no response", func(t *testing.T) {
		tracer.Reset()

		res, err, _ := tracedGet("http://127.0.0.1:12345/v1/orders", &alwaysFailedTransport{})
		Expect(res).To(BeNil())
		var urlErr *url.Error
		Expect(errors.As(err, &urlErr)).To(BeTrue())
		Expect(urlErr.Err.Error()).To(Equal("mock error"))

		spans := tracer.FinishedSpans()
		Expect(len(spans)).To(Equal(2))
		Expect(spans[0].Tags()).To(Equal(map[string]interface{}{
			"span.kind":     ext.SpanKindEnum("client"),
			"http.url":      "http://127.0.0.1:12345/v1/orders",
			"http.method":   "GET",
			"error":         true,
			"error.message": "mock error",
		}))
	})
}
