package bizerror_test

import (
	"dispatcher/bizerror"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

func TestDispatchError(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should name the failed operation in message", func(t *testing.T) {
		err := bizerror.NewDispatchError(bizerror.OperationAssign, "100", bizerror.ErrCapacityExceeded)
		Expect(err.Error()).To(Equal("assign failed for order 100: worker capacity exceeded"))
		Expect(errors.Is(err, bizerror.ErrCapacityExceeded)).To(BeTrue())

		err = bizerror.NewDispatchError(bizerror.OperationUnassign, "", nil)
		Expect(err.Error()).To(Equal("unassign failed"))
	})

	t.Run("should keep remote cause while matching ErrRemoteWriteFailed", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := bizerror.NewDispatchError(bizerror.OperationStatusUpdate, "7", bizerror.RemoteWriteFailed(cause))
		Expect(errors.Is(err, bizerror.ErrRemoteWriteFailed)).To(BeTrue())
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(err.Error()).To(Equal("status-update failed for order 7: remote write failed: connection reset"))
		Expect(errors.Is(bizerror.RemoteWriteFailed(nil), bizerror.ErrRemoteWriteFailed)).To(BeTrue())
	})

	t.Run("should respond with distinguishable status codes", func(t *testing.T) {
		cases := map[error]int{
			bizerror.ErrUnauthenticated:          http.StatusUnauthorized,
			bizerror.ErrForbidden:                http.StatusForbidden,
			bizerror.ErrNotFound:                 http.StatusNotFound,
			bizerror.ErrAlreadyTerminal:          http.StatusConflict,
			bizerror.ErrCapacityExceeded:         http.StatusConflict,
			bizerror.ErrNotStarted:               http.StatusConflict,
			bizerror.RemoteWriteFailed(io.EOF):   http.StatusBadGateway,
			errors.New("something unexpected"): http.StatusInternalServerError,
		}
		for cause, status := range cases {
			detail := bizerror.NewDispatchError(bizerror.OperationAssign, "1", cause).Respond()
			Expect(detail.Status).To(Equal(status), cause.Error())
			Expect(detail.Data).To(Equal(map[string]string{"operation": "assign"}))
		}
	})
}

func TestErrorHandling(t *testing.T) {
	RegisterTestingT(t)
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(bizerror.ErrorHandling())
	router.GET("/dispatch", func(c *gin.Context) {
		panic(bizerror.NewDispatchError(bizerror.OperationAssign, "1", bizerror.ErrForbidden))
	})
	router.GET("/bad", func(c *gin.Context) {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id 'x'")})
	})
	router.GET("/unauthenticated", func(c *gin.Context) {
		panic(bizerror.ErrUnauthenticated)
	})
	router.GET("/not-found", func(c *gin.Context) {
		_ = c.Error(bizerror.ErrNotFound)
	})
	router.GET("/unknown", func(c *gin.Context) {
		panic("boom")
	})

	t.Run("should render dispatch errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dispatch", nil))
		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(w.Body.String()).To(MatchJSON(`{"code":"security.forbidden",
			"message":"assign failed for order 1: permission denied", "data":{"operation":"assign"}}`))
	})

	t.Run("should render bad param errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(MatchJSON(`{"code":"common.bad_param","message":"invalid id 'x'","data":null}`))
	})

	t.Run("should render sentinel errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unauthenticated", nil))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/not-found", nil))
		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(w.Body.String()).To(MatchJSON(`{"code":"common.record_not_found","message":"record not found","data":null}`))
	})

	t.Run("should render unknown panics as internal server error", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unknown", nil))
		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(MatchJSON(`{"code":"common.internal_server_error","message":"boom","data":null}`))
	})
}
