package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/mailin-buyback/internal/engine"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// SubmitAssessmentInput is the final assessment entered by staff.
type SubmitAssessmentInput struct {
	ID   string `path:"id" doc:"Request UUID"`
	Body struct {
		ItemChanges []ItemEditBody `json:"item_changes,omitempty" doc:"Assessed values that differ from intake; omitted fields keep their intake value"`
		Photos      []PhotoBody    `json:"photos,omitempty"`
		FinalPrice  *int           `json:"final_price,omitempty"  doc:"Overrides the computed total" minimum:"0"`
	}
}

// PreviewAssessmentInput prices candidate edits without saving them.
type PreviewAssessmentInput struct {
	ID   string `path:"id" doc:"Request UUID"`
	Body struct {
		ItemChanges []ItemEditBody `json:"item_changes,omitempty"`
	}
}

// PreviewAssessmentOutput is the priced preview.
type PreviewAssessmentOutput struct {
	Body *engine.Assessment
}

// DecisionInput records the customer's answer to the assessed price.
type DecisionInput struct {
	ID   string `path:"id" doc:"Request UUID"`
	Body struct {
		Decision string           `json:"decision"       enum:"approve,reject"`
		Bank     *domain.BankInfo `json:"bank,omitempty" doc:"Required on approve"`
	}
}

// CompletePayoutOutput reports the records created for a paid request.
type CompletePayoutOutput struct {
	Body struct {
		engine.Completion
		Retired         bool     `json:"retired"            doc:"False when the request record could not be removed; retry with /retire"`
		WarningMessages []string `json:"warnings,omitempty"`
	}
}

// StatusOutput is a bare status acknowledgement.
type StatusOutput struct {
	Body StatusResponse
}

// MarkKitSent records that the shipping kit went out.
func (h *RequestsHandler) MarkKitSent(ctx context.Context, input *RequestIDInput) (*RequestOutput, error) {
	r, err := h.engine.MarkKitSent(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &RequestOutput{Body: r}, nil
}

// SubmitAssessment saves the final assessment and price.
func (h *RequestsHandler) SubmitAssessment(
	ctx context.Context,
	input *SubmitAssessmentInput,
) (*RequestOutput, error) {
	r, err := h.engine.SubmitAssessment(ctx, input.ID, engine.AssessmentInput{
		ItemChanges: toChanges(input.Body.ItemChanges),
		Photos:      toPhotos(input.Body.Photos),
		FinalPrice:  input.Body.FinalPrice,
	})
	if err != nil {
		return nil, apiError(err)
	}
	return &RequestOutput{Body: r}, nil
}

// PreviewAssessment prices edits against the stored request.
func (h *RequestsHandler) PreviewAssessment(
	ctx context.Context,
	input *PreviewAssessmentInput,
) (*PreviewAssessmentOutput, error) {
	a, err := h.engine.PreviewAssessment(ctx, input.ID, toChanges(input.Body.ItemChanges))
	if err != nil {
		return nil, apiError(err)
	}
	return &PreviewAssessmentOutput{Body: a}, nil
}

// RecordDecision applies an approve or reject decision.
func (h *RequestsHandler) RecordDecision(ctx context.Context, input *DecisionInput) (*RequestOutput, error) {
	r, err := h.engine.RecordCustomerDecision(ctx, input.ID,
		domain.Decision(input.Body.Decision), input.Body.Bank)
	if err != nil {
		return nil, apiError(err)
	}
	return &RequestOutput{Body: r}, nil
}

// CompletePayout materializes the customer, purchase and inventory records.
func (h *RequestsHandler) CompletePayout(
	ctx context.Context,
	input *RequestIDInput,
) (*CompletePayoutOutput, error) {
	c, err := h.engine.CompletePayout(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}

	resp := &CompletePayoutOutput{}
	resp.Body.Completion = *c
	resp.Body.Retired = c.Retired()
	for _, w := range c.Warnings {
		resp.Body.WarningMessages = append(resp.Body.WarningMessages, w.Error())
	}
	return resp, nil
}

// RetryRetirement removes a paid request left behind by a completion.
func (h *RequestsHandler) RetryRetirement(ctx context.Context, input *RequestIDInput) (*StatusOutput, error) {
	if err := h.engine.RetryRetirement(ctx, input.ID); err != nil {
		return nil, apiError(err)
	}
	return &StatusOutput{Body: StatusResponse{Status: "retired"}}, nil
}

// CompleteReturn records that the device went back to the customer.
func (h *RequestsHandler) CompleteReturn(ctx context.Context, input *RequestIDInput) (*RequestOutput, error) {
	r, err := h.engine.CompleteReturn(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &RequestOutput{Body: r}, nil
}

// RegisterActionRoutes registers the lifecycle action endpoints.
func RegisterActionRoutes(api huma.API, h *RequestsHandler) {
	transitionErrors := []int{
		http.StatusNotFound,
		http.StatusConflict,
		http.StatusUnprocessableEntity,
		http.StatusInternalServerError,
	}

	huma.Register(api, huma.Operation{
		OperationID: "mark-kit-sent",
		Method:      http.MethodPost,
		Path:        "/api/v1/requests/{id}/kit-sent",
		Summary:     "Mark the shipping kit as sent",
		Tags:        []string{"actions"},
		Errors:      transitionErrors,
	}, h.MarkKitSent)

	huma.Register(api, huma.Operation{
		OperationID: "submit-assessment",
		Method:      http.MethodPost,
		Path:        "/api/v1/requests/{id}/assessment",
		Summary:     "Submit the final assessment",
		Description: "Records the assessed condition of each item and the final price.",
		Tags:        []string{"actions"},
		Errors:      transitionErrors,
	}, h.SubmitAssessment)

	huma.Register(api, huma.Operation{
		OperationID: "preview-assessment",
		Method:      http.MethodPost,
		Path:        "/api/v1/requests/{id}/assessment/preview",
		Summary:     "Preview an assessment price",
		Description: "Prices the given edits against the stored request without saving anything.",
		Tags:        []string{"actions"},
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, h.PreviewAssessment)

	huma.Register(api, huma.Operation{
		OperationID: "record-decision",
		Method:      http.MethodPost,
		Path:        "/api/v1/requests/{id}/decision",
		Summary:     "Record the customer's decision",
		Tags:        []string{"actions"},
		Errors:      transitionErrors,
	}, h.RecordDecision)

	huma.Register(api, huma.Operation{
		OperationID: "complete-payout",
		Method:      http.MethodPost,
		Path:        "/api/v1/requests/{id}/complete-payout",
		Summary:     "Complete the payout",
		Description: "Marks the request paid and creates the customer, purchase and inventory records.",
		Tags:        []string{"actions"},
		Errors:      transitionErrors,
	}, h.CompletePayout)

	huma.Register(api, huma.Operation{
		OperationID: "retry-retirement",
		Method:      http.MethodPost,
		Path:        "/api/v1/requests/{id}/retire",
		Summary:     "Retry removing a paid request",
		Tags:        []string{"actions"},
		Errors:      []int{http.StatusConflict, http.StatusInternalServerError},
	}, h.RetryRetirement)

	huma.Register(api, huma.Operation{
		OperationID: "complete-return",
		Method:      http.MethodPost,
		Path:        "/api/v1/requests/{id}/complete-return",
		Summary:     "Record the device return",
		Tags:        []string{"actions"},
		Errors:      transitionErrors,
	}, h.CompleteReturn)
}
