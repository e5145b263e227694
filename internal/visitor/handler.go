package visitor

import (
	"encoding/json"
	"net/http"

	"github.com/2beens/realestate/internal/apperr"
	"github.com/2beens/realestate/internal/telemetry/tracing"
	"github.com/2beens/realestate/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	recorder pageViewRecorder
}

func NewHandler(recorder pageViewRecorder) *Handler {
	return &Handler{
		recorder: recorder,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/track", handler.handleTrack).Methods("POST").Name("track")
}

// handleTrack records a page view reported by the frontend. Only the session
// id falls back to the visitor cookie of the request.
func (handler *Handler) handleTrack(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "visitorHandler.track")
	defer span.End()

	var in PageViewInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Debugf("track: decode body: %s", err)
		writeTrackError(w, apperr.Validation("invalid request body"))
		return
	}
	if in.SessionID == "" {
		in.SessionID = SessionIDFromContext(ctx)
	}

	if err := handler.recorder.RecordPageView(ctx, in); err != nil {
		writeTrackError(w, err)
		return
	}

	pkg.WriteJSONResponse(w, http.StatusOK, map[string]bool{"success": true})
}

func writeTrackError(w http.ResponseWriter, err error) {
	if apperr.Is(err, apperr.KindValidation) {
		pkg.WriteJSONResponse(w, http.StatusBadRequest, map[string]string{"error": apperr.PublicMessage(err)})
		return
	}
	log.Errorf("track page view: %s", err)
	pkg.WriteJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
}
