package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/mailin-buyback/internal/engine"
	"github.com/donaldgifford/mailin-buyback/internal/store"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// RequestsHandler exposes the request lifecycle over HTTP.
type RequestsHandler struct {
	engine *engine.Engine
}

// NewRequestsHandler creates a new RequestsHandler.
func NewRequestsHandler(eng *engine.Engine) *RequestsHandler {
	return &RequestsHandler{engine: eng}
}

// --- Input/Output types ---

// ListRequestsInput filters the request listing.
type ListRequestsInput struct {
	Status        string `query:"status"         doc:"Comma-separated statuses; approved and rejected are accepted as aliases"`
	RequestNumber string `query:"request_number" doc:"Exact request number, e.g. MB-20260301-1A2B3C"`
	Limit         int    `query:"limit"          doc:"Number of results (default 50)"                                          minimum:"0" maximum:"500"`
	Offset        int    `query:"offset"         doc:"Pagination offset"                                                        minimum:"0"`
	OrderBy       string `query:"order_by"       doc:"Sort field, newest first"                                                enum:"created_at,updated_at,"`
}

// ListRequestsOutput is a page of requests.
type ListRequestsOutput struct {
	Body struct {
		Requests []domain.MailBuybackRequest `json:"requests"`
		Total    int                         `json:"total"`
		Limit    int                         `json:"limit"`
		Offset   int                         `json:"offset"`
	}
}

// RequestIDInput addresses a single request.
type RequestIDInput struct {
	ID string `path:"id" doc:"Request UUID"`
}

// RequestOutput returns a single request.
type RequestOutput struct {
	Body *domain.MailBuybackRequest
}

// CreateRequestInput is the intake submission.
type CreateRequestInput struct {
	Body struct {
		Customer         CustomerBody `json:"customer"`
		Items            []ItemBody   `json:"items"                        minItems:"1"`
		AgreementDocPath string       `json:"agreement_doc_path,omitempty" doc:"Storage path of the signed buyback agreement"`
	}
}

// --- Handlers ---

// ListRequests returns requests matching the filters.
func (h *RequestsHandler) ListRequests(
	ctx context.Context,
	input *ListRequestsInput,
) (*ListRequestsOutput, error) {
	q := &store.RequestQuery{
		Limit:   input.Limit,
		Offset:  input.Offset,
		OrderBy: input.OrderBy,
	}

	if input.Status != "" {
		for _, raw := range strings.Split(input.Status, ",") {
			s, err := domain.ParseStatus(raw)
			if err != nil {
				return nil, apiError(err)
			}
			q.Statuses = append(q.Statuses, s)
		}
	}
	if input.RequestNumber != "" {
		q.RequestNumber = &input.RequestNumber
	}

	requests, total, err := h.engine.ListRequests(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing requests: " + err.Error())
	}
	if requests == nil {
		requests = []domain.MailBuybackRequest{}
	}

	resp := &ListRequestsOutput{}
	resp.Body.Requests = requests
	resp.Body.Total = total
	resp.Body.Limit = q.Limit
	resp.Body.Offset = q.Offset
	return resp, nil
}

// GetRequest returns one request by ID.
func (h *RequestsHandler) GetRequest(ctx context.Context, input *RequestIDInput) (*RequestOutput, error) {
	r, err := h.engine.GetRequest(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &RequestOutput{Body: r}, nil
}

// CreateRequest accepts a new mail-in submission and prices it.
func (h *RequestsHandler) CreateRequest(
	ctx context.Context,
	input *CreateRequestInput,
) (*RequestOutput, error) {
	in := engine.NewRequest{
		Customer:         input.Body.Customer.toDomain(),
		Items:            make([]engine.NewItem, len(input.Body.Items)),
		AgreementDocPath: input.Body.AgreementDocPath,
	}
	for i := range input.Body.Items {
		in.Items[i] = input.Body.Items[i].toNewItem()
	}

	r, err := h.engine.Intake(ctx, in)
	if err != nil {
		return nil, apiError(err)
	}
	return &RequestOutput{Body: r}, nil
}

// RegisterRequestRoutes registers request read and intake endpoints.
func RegisterRequestRoutes(api huma.API, h *RequestsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-requests",
		Method:      http.MethodGet,
		Path:        "/api/v1/requests",
		Summary:     "List requests",
		Description: "Returns requests filtered by status or request number, newest first.",
		Tags:        []string{"requests"},
		Errors:      []int{http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}, h.ListRequests)

	huma.Register(api, huma.Operation{
		OperationID: "get-request",
		Method:      http.MethodGet,
		Path:        "/api/v1/requests/{id}",
		Summary:     "Get a request",
		Tags:        []string{"requests"},
		Errors:      []int{http.StatusNotFound},
	}, h.GetRequest)

	huma.Register(api, huma.Operation{
		OperationID:   "create-request",
		Method:        http.MethodPost,
		Path:          "/api/v1/requests",
		Summary:       "Submit a mail-in request",
		Description:   "Prices each item from the current tables and stores the request as pending.",
		Tags:          []string{"requests"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}, h.CreateRequest)
}
