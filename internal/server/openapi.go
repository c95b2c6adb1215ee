package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Birracrucis API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Live shared-awareness backend for multi-stop social routes.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/routes/{route}/join
	postJoin, _ := r.NewOperationContext(http.MethodPost, "/api/routes/{route}/join")
	postJoin.SetSummary("Join a route")
	postJoin.SetDescription("Join as a registered user or an ad-hoc guest. Returns the session token.")
	postJoin.AddReqStructure(JoinRequest{})
	postJoin.AddRespStructure(JoinResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postJoin)

	// POST /api/routes/{route}/leave
	postLeave, _ := r.NewOperationContext(http.MethodPost, "/api/routes/{route}/leave")
	postLeave.SetSummary("Leave a route")
	postLeave.SetDescription("Deactivates the participant. Requires Bearer token.")
	postLeave.AddRespStructure(map[string]string{}, openapi.WithHTTPStatus(http.StatusOK))
	postLeave.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLeave)

	// POST /api/routes/{route}/position
	postPosition, _ := r.NewOperationContext(http.MethodPost, "/api/routes/{route}/position")
	postPosition.SetSummary("Report position")
	postPosition.SetDescription("Periodic position report. (0,0) means the reporter lost its fix. Requires Bearer token.")
	postPosition.AddReqStructure(PositionRequest{})
	postPosition.AddRespStructure(map[string]string{}, openapi.WithHTTPStatus(http.StatusOK))
	postPosition.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postPosition.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postPosition)

	// POST /api/routes/{route}/messages
	postMessage, _ := r.NewOperationContext(http.MethodPost, "/api/routes/{route}/messages")
	postMessage.SetSummary("Send a chat message")
	postMessage.SetDescription("Appends a message; other participants receive it through their streams. Requires Bearer token.")
	postMessage.AddReqStructure(MessageRequest{})
	postMessage.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusCreated))
	postMessage.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postMessage.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postMessage)

	// POST /api/routes/{route}/nudges
	postNudge, _ := r.NewOperationContext(http.MethodPost, "/api/routes/{route}/nudges")
	postNudge.SetSummary("Send a nudge")
	postNudge.SetDescription("Nudge one participant or everyone (no target). Requires Bearer token.")
	postNudge.AddReqStructure(NudgeRequest{})
	postNudge.AddRespStructure(NudgeResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postNudge.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postNudge.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postNudge)

	// POST /api/routes/{route}/checkin
	postCheckIn, _ := r.NewOperationContext(http.MethodPost, "/api/routes/{route}/checkin")
	postCheckIn.SetSummary("Manual check-in")
	postCheckIn.SetDescription("Always accepted; bypasses the proximity requirement. Requires Bearer token.")
	postCheckIn.AddReqStructure(CheckInRequest{})
	postCheckIn.AddRespStructure(CheckInResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postCheckIn.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postCheckIn.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postCheckIn)

	// GET /api/routes/{route}/map
	getMap, _ := r.NewOperationContext(http.MethodGet, "/api/routes/{route}/map")
	getMap.SetSummary("Clustered map markers")
	getMap.SetDescription("Participant markers grouped by proximity; pass radius for low-zoom aggregation. Requires Bearer token.")
	getMap.AddRespStructure(MapResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMap.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	getMap.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMap)

	// GET /api/routes/{route}/stream
	getStream, _ := r.NewOperationContext(http.MethodGet, "/api/routes/{route}/stream")
	getStream.SetSummary("Live event stream")
	getStream.SetDescription("Server-sent events: connected, participants, messages, nudges, plus heartbeat comments. " +
		"The session closes itself after its lifetime bound; clients reconnect transparently. " +
		"Query: token (required), cursor (optional nudge resume point).")
	getStream.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	getStream.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	getStream.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getStream)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(spec)
	}
}
