package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/diplomacy/internal/diplomacy"
	"github.com/playperu/diplomacy/internal/events"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse maps each checked dependency to its status.
type HealthResponse map[string]struct {
	Status string `json:"status"`
}

type gamePath struct {
	GameID string `path:"gameID"`
}

type discussionPath struct {
	DiscussionID string `path:"discussionID"`
}

type createProposalInput struct {
	GameID string `path:"gameID"`
	CreateProposalRequest
}

type lookupDiscussionInput struct {
	GameID string `path:"gameID"`
	DiscussionRequest
}

type voteInput struct {
	ProposalID string `path:"proposalID"`
	VoteRequest
}

type updateDiscussionInput struct {
	DiscussionID string `path:"discussionID"`
	DiscussionRequest
}

type sendMessageInput struct {
	DiscussionID string `path:"discussionID"`
	MessageRequest
}

type listGamesQuery struct {
	Status string `query:"status" enum:"all,active,completed"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Diplomacy API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the turn-based diplomacy game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/users
	postUsers, _ := r.NewOperationContext(http.MethodPost, "/api/users")
	postUsers.SetSummary("Register")
	postUsers.SetDescription("Creates an account and signs it in. Sets the session cookie.")
	postUsers.AddReqStructure(CredentialsRequest{})
	postUsers.AddRespStructure(UserResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postUsers.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postUsers.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postUsers)

	// POST /api/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/login")
	postLogin.SetSummary("Log in")
	postLogin.SetDescription("Authenticates with name and password. Sets the session cookie.")
	postLogin.AddReqStructure(CredentialsRequest{})
	postLogin.AddRespStructure(UserResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/logout")
	postLogout.SetSummary("Log out")
	postLogout.SetDescription("Ends the session and clears the cookie.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/me")
	getMe.SetSummary("Current user")
	getMe.SetDescription("Returns the signed-in user. Requires the session cookie.")
	getMe.AddRespStructure(UserResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// GET /api/games
	listGames, _ := r.NewOperationContext(http.MethodGet, "/api/games")
	listGames.SetSummary("List games")
	listGames.SetDescription("Returns the games the signed-in user plays in, optionally filtered by status.")
	listGames.AddReqStructure(listGamesQuery{})
	listGames.AddRespStructure([]GameSummaryResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listGames.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	listGames.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listGames)

	// POST /api/games
	createGame, _ := r.NewOperationContext(http.MethodPost, "/api/games")
	createGame.SetSummary("Create game")
	createGame.SetDescription("Starts a game for the signed-in user against the AI civilizations.")
	createGame.AddReqStructure(CreateGameRequest{})
	createGame.AddRespStructure(GameStateResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(createGame)

	// GET /api/games/{gameID}/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/state")
	getState.SetSummary("Get game state")
	getState.SetDescription("Returns the game as the caller's participant may see it.")
	getState.AddReqStructure(gamePath{})
	getState.AddRespStructure(GameStateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	getState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getState)

	// POST /api/games/{gameID}/advance
	advance, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/advance")
	advance.SetSummary("Advance phase")
	advance.SetDescription("Moves the game to its next phase, running AI turns and resolving the round as needed.")
	advance.AddReqStructure(gamePath{})
	advance.AddRespStructure(GameStateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	advance.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	advance.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	advance.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(advance)

	// POST /api/games/{gameID}/proposals
	createProposal, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/proposals")
	createProposal.SetSummary("Create proposal")
	createProposal.SetDescription("Submits a proposal during the PROPOSAL phase.")
	createProposal.AddReqStructure(createProposalInput{})
	createProposal.AddRespStructure(ProposalResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createProposal.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createProposal.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	createProposal.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(createProposal)

	// POST /api/games/{gameID}/acknowledge
	ack, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/acknowledge")
	ack.SetSummary("Acknowledge result")
	ack.SetDescription("Records that the caller dismissed the end of game result.")
	ack.AddReqStructure(gamePath{})
	ack.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	ack.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(ack)

	// POST /api/games/{gameID}/discussions
	lookup, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/discussions")
	lookup.SetSummary("Find discussion")
	lookup.SetDescription("Returns the discussion between the caller and the given participants, creating it if needed.")
	lookup.AddReqStructure(lookupDiscussionInput{})
	lookup.AddRespStructure(DiscussionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	lookup.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	lookup.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(lookup)

	// GET /api/games/{gameID}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of game updates and visible log entries.")
	getEvents.AddReqStructure(gamePath{})
	getEvents.AddRespStructure(events.Event{}, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// POST /api/proposals/{proposalID}/votes
	vote, _ := r.NewOperationContext(http.MethodPost, "/api/proposals/{proposalID}/votes")
	vote.SetSummary("Vote")
	vote.SetDescription("Casts the caller's vote on a proposal during the VOTING phase.")
	vote.AddReqStructure(voteInput{})
	vote.AddRespStructure(VoteResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	vote.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	vote.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(vote)

	// PUT /api/discussions/{discussionID}/participants
	update, _ := r.NewOperationContext(http.MethodPut, "/api/discussions/{discussionID}/participants")
	update.SetSummary("Set discussion members")
	update.SetDescription("Replaces a discussion's members. The id \"new\" creates a discussion in gameId.")
	update.AddReqStructure(updateDiscussionInput{})
	update.AddRespStructure(DiscussionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	update.AddRespStructure(DiscussionResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	update.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	update.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(update)

	// POST /api/discussions/{discussionID}/messages
	send, _ := r.NewOperationContext(http.MethodPost, "/api/discussions/{discussionID}/messages")
	send.SetSummary("Send message")
	send.SetDescription("Posts a chat message. AI members of the discussion may reply.")
	send.AddReqStructure(sendMessageInput{})
	send.AddRespStructure(diplomacy.ChatMessage{}, openapi.WithHTTPStatus(http.StatusCreated))
	send.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	send.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(send)

	// GET /api/discussions/{discussionID}/ws
	ws, _ := r.NewOperationContext(http.MethodGet, "/api/discussions/{discussionID}/ws")
	ws.SetSummary("Discussion WebSocket")
	ws.SetDescription("Upgrades to a WebSocket. Send MessageRequest frames; receive events for new messages.")
	ws.AddReqStructure(discussionPath{})
	ws.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("application/json"))
	_ = r.AddOperation(ws)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
