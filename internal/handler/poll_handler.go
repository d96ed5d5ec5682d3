package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"poll-service/internal/commands"
	"poll-service/internal/domain/poll"
	"poll-service/internal/transport/httpdto"
	poll_errors "poll-service/pkg/errors"

	"github.com/gin-gonic/gin"
)

// PollService is what the HTTP layer needs from the service.
type PollService interface {
	Create(ctx context.Context, cmd commands.CreatePollCommand) (*poll.Poll, error)
	Vote(ctx context.Context, cmd commands.CastVoteCommand) (*poll.Poll, error)
	Delete(ctx context.Context, cmd commands.DeletePollCommand) (*poll.Poll, error)
	Get(ctx context.Context, name string) (*poll.Poll, error)
	List(ctx context.Context) []*poll.Poll
	Now() int64
	Reset(ctx context.Context) int
	AdvanceTime(ctx context.Context, ms int64) error
}

// VoteCounterResetter clears rate-limit state for the test reset hook.
type VoteCounterResetter interface {
	ResetVotes(ctx context.Context) (int, error)
}

type PollHandler struct {
	service PollService
	limits  VoteCounterResetter
}

// NewPollHandler builds the poll routes. limits may be nil when no rate
// limiter is configured.
func NewPollHandler(service PollService, limits VoteCounterResetter) *PollHandler {
	return &PollHandler{service: service, limits: limits}
}

// Add handles POST /api/add
func (h *PollHandler) Add(c *gin.Context) {
	var req httpdto.CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	cmd, err := createCommand(req)
	if err != nil {
		writeError(c, err)
		return
	}

	p, err := h.service.Create(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PollResponse{Poll: httpdto.FromPoll(p, h.service.Now())}))
}

// Get handles GET /api/get?name=
func (h *PollHandler) Get(c *gin.Context) {
	var req httpdto.GetPollRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	p, err := h.service.Get(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PollResponse{Poll: httpdto.FromPoll(p, h.service.Now())}))
}

// List handles GET /api/list
func (h *PollHandler) List(c *gin.Context) {
	polls := h.service.List(c.Request.Context())
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListPollsResponse{Polls: httpdto.FromPollSlice(polls, h.service.Now())}))
}

// Vote handles POST /api/vote
func (h *PollHandler) Vote(c *gin.Context) {
	var req httpdto.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	p, err := h.service.Vote(c.Request.Context(), commands.CastVoteCommand{
		Name:   req.Name,
		Voter:  req.Voter,
		Option: req.Option,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PollResponse{Poll: httpdto.FromPoll(p, h.service.Now())}))
}

// Delete handles POST /api/delete
func (h *PollHandler) Delete(c *gin.Context) {
	var req httpdto.DeletePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	p, err := h.service.Delete(c.Request.Context(), commands.DeletePollCommand{Name: req.Name})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.DeletePollResponse{Name: p.Name}))
}

// Reset handles POST /api/test/reset
func (h *PollHandler) Reset(c *gin.Context) {
	resp := httpdto.ResetResponse{Cleared: h.service.Reset(c.Request.Context())}
	if h.limits != nil {
		n, err := h.limits.ResetVotes(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		resp.RateLimitsCleared = n
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}

// Advance handles POST /api/test/advance
func (h *PollHandler) Advance(c *gin.Context) {
	var req httpdto.AdvanceTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	if err := h.service.AdvanceTime(c.Request.Context(), req.Ms); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"ms": req.Ms}))
}

// maxMinutes keeps the duration well inside int64 milliseconds.
const maxMinutes = 1 << 31

func createCommand(req httpdto.CreatePollRequest) (commands.CreatePollCommand, error) {
	if req.Name == nil || *req.Name == "" {
		return commands.CreatePollCommand{}, poll_errors.Newf(poll_errors.ErrInvalidInput, `required argument "name" was missing`)
	}
	if req.Minutes == nil {
		return commands.CreatePollCommand{}, poll_errors.Newf(poll_errors.ErrInvalidInput, `required argument "minutes" was missing`)
	}
	minutes := *req.Minutes
	if minutes <= 0 || minutes != math.Trunc(minutes) || minutes > maxMinutes {
		return commands.CreatePollCommand{}, poll_errors.Newf(poll_errors.ErrInvalidInput,
			"'minutes' is not a positive integer: %s", strconv.FormatFloat(minutes, 'f', -1, 64))
	}
	if req.Options == nil {
		return commands.CreatePollCommand{}, poll_errors.Newf(poll_errors.ErrInvalidInput, `required argument "options" was missing`)
	}
	return commands.CreatePollCommand{
		Name:    *req.Name,
		Minutes: int(minutes),
		Options: req.Options,
	}, nil
}

// writeError maps service errors onto status codes. Anything unexpected is
// left to the error middleware.
func writeError(c *gin.Context, err error) {
	switch poll_errors.Kind(err) {
	case poll_errors.ErrInvalidInput:
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
	case poll_errors.ErrInvalidOption:
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_OPTION"))
	case poll_errors.ErrPollClosed:
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "POLL_CLOSED"))
	case poll_errors.ErrNotFound:
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse(err.Error(), "NOT_FOUND"))
	case poll_errors.ErrAlreadyExists:
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "ALREADY_EXISTS"))
	default:
		c.Status(http.StatusInternalServerError)
		_ = c.Error(err)
	}
}
