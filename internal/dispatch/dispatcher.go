// internal/dispatch/dispatcher.go
// Single-endpoint RPC dispatcher. Every API call is a POST whose body names
// a method and carries its arguments, either as a JSON object or as
// multipart form data whose first field is the method name.

package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/carpediem-app/carpediem-backend/internal/apperr"
	"github.com/carpediem-app/carpediem-backend/internal/profile"
	"github.com/carpediem-app/carpediem-backend/internal/session"
	"github.com/carpediem-app/carpediem-backend/internal/upload"
)

const maxJSONBodySize = 1 << 20

// envelope is the error reply shape; successful replies are built by the
// method handlers themselves.
type envelope struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// Dispatcher routes API calls to registered method handlers and enforces
// their access policy.
type Dispatcher struct {
	registry *Registry
	sessions *session.Manager
	profiles profile.Service
	uploads  *upload.Manager
	validate *validator.Validate
}

func NewDispatcher(registry *Registry, sessions *session.Manager, profiles profile.Service, uploads *upload.Manager) *Dispatcher {
	validate := validator.New()
	// Report fields under their wire names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Dispatcher{
		registry: registry,
		sessions: sessions,
		profiles: profiles,
		uploads:  uploads,
		validate: validate,
	}
}

// argumentsFunc materializes the call's argument document. For multipart
// calls this consumes the remaining parts, storing file uploads, so it must
// only run once the call is routed and authenticated.
type argumentsFunc func() ([]byte, error)

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	method, arguments, err := d.openCall(r)
	if err != nil {
		d.writeError(w, "unknown", err)
		return
	}

	spec, ok := d.registry.Lookup(method)
	if !ok {
		d.writeError(w, method, apperr.New(apperr.KindInvalidMethod, "Method doesn't exists"))
		return
	}

	call := &Call{}

	if spec.RequiresAuth {
		userID, err := d.sessions.Resolve(r)
		if err != nil {
			d.writeError(w, method, err)
			return
		}
		user, err := d.profiles.GetByID(r.Context(), userID)
		if err != nil {
			d.writeError(w, method, apperr.New(apperr.KindInvalidToken, "Invalid token"))
			return
		}
		if spec.RequiresFilledProfile && !user.IsFilled() {
			d.writeError(w, method, apperr.New(apperr.KindFilledProfileOnly, "This method can use only filled profiles"))
			return
		}
		call.UserID = userID
		call.Profile = user
	}

	body, err := arguments()
	if err != nil {
		d.writeError(w, method, err)
		return
	}

	req := spec.NewRequest()
	if req != nil {
		if err := json.Unmarshal(body, req); err != nil {
			d.writeError(w, method, apperr.New(apperr.KindInvalidRequestData, "Invalid request"))
			return
		}
		if err := d.validate.Struct(req); err != nil {
			d.writeError(w, method, apperr.New(apperr.KindInvalidRequestData, validationComment(err)))
			return
		}
	}
	call.Request = req

	result, err := spec.Handle(r.Context(), call)
	if err != nil {
		d.writeError(w, method, err)
		return
	}

	if result.SessionToken != "" {
		d.sessions.Attach(w, result.SessionToken)
	}
	d.writeJSON(w, result.Body)

	apiRequestsTotal.WithLabelValues(method, "ok").Inc()
	apiRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// openCall extracts the method name from the request body and defers the
// rest of the arguments behind an argumentsFunc.
func (d *Dispatcher) openCall(r *http.Request) (string, argumentsFunc, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/") {
		return d.openMultipartCall(r)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBodySize))
	if err != nil {
		return "", nil, apperr.New(apperr.KindInvalidRequest, "Invalid request")
	}

	var probe struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.Method == "" {
		return "", nil, apperr.New(apperr.KindInvalidRequest, "Invalid request")
	}

	return probe.Method, func() ([]byte, error) { return body, nil }, nil
}

// validationComment turns validator failures into field-level messages for
// the response comment.
func validationComment(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, fieldMessage(fe))
	}
	return "Invalid request: " + strings.Join(messages, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func (d *Dispatcher) writeError(w http.ResponseWriter, method string, err error) {
	if recognized, ok := apperr.Recognized(err); ok {
		apiRequestsTotal.WithLabelValues(method, string(recognized.Kind)).Inc()
		d.writeJSON(w, envelope{Status: "Error", Comment: recognized.Message})
		return
	}

	log.Printf("method %s failed: %v", method, err)
	apiRequestsTotal.WithLabelValues(method, "internal_error").Inc()
	d.writeJSON(w, envelope{Status: "Error", Comment: "Internal server error"})
}

func (d *Dispatcher) writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		log.Printf("failed to write response: %v", err)
	}
}
