package evalhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"prompteval-server/internal/domain/eval"
	"prompteval-server/internal/domain/model"
	"prompteval-server/internal/interfaces/httpserver/middlewares"
	"prompteval-server/internal/interfaces/httpserver/responses"
	"prompteval-server/internal/utils/platformerrors"
)

// EvalHandler serves the evaluation endpoints.
type EvalHandler struct {
	evaluator    *eval.Evaluator
	enhancer     *eval.Enhancer
	catalog      *model.Catalog
	defaultModel model.ID
	maxCases     int
}

func NewEvalHandler(evaluator *eval.Evaluator, enhancer *eval.Enhancer, catalog *model.Catalog, defaultModel model.ID, maxCases int) *EvalHandler {
	return &EvalHandler{
		evaluator:    evaluator,
		enhancer:     enhancer,
		catalog:      catalog,
		defaultModel: defaultModel,
		maxCases:     maxCases,
	}
}

// Evaluate godoc
// @Summary Evaluate a prompt against synthetic test cases
// @Tags Evaluation API
// @Accept json
// @Produce json
// @Router /v1/evaluate [post]
func (h *EvalHandler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			"invalid request body", "f3c19e64-80a7-4d52-b1c8-6e97d2043fa5")
		return
	}

	params, id, ok := h.buildEvaluationParams(c, req)
	if !ok {
		return
	}

	report, err := h.evaluator.Evaluate(c.Request.Context(), id, params)
	if err != nil {
		responses.HandleError(c, err, "evaluation failed")
		return
	}

	c.JSON(http.StatusOK, evaluateResponse{
		RequestID:        middlewares.RequestIDFromContext(c),
		EvaluationReport: report,
	})
}

// Enhance godoc
// @Summary Enhance a prompt, optionally re-evaluating the result
// @Tags Evaluation API
// @Accept json
// @Produce json
// @Router /v1/enhance [post]
func (h *EvalHandler) Enhance(c *gin.Context) {
	var req EnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			"invalid request body", "0d85b7f2-4c61-4a39-9e80-c12f6da4073e")
		return
	}

	prompt, err := validatePrompt(req.Prompt)
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			err.Error(), "b94e2c07-6f18-4d5a-a3c6-80d1f5e927b4")
		return
	}
	domain, err := validateDomain(req.Domain)
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			err.Error(), "72f0d8a5-1e93-4b6c-85d7-c4a2960ef318")
		return
	}
	ref, err := req.Credential.toReference()
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			err.Error(), "e51a09c3-7d84-4f26-b0e9-3c68a1d5f472")
		return
	}

	id := eval.Identity{Credential: ref, OwnerID: middlewares.OwnerFromContext(c)}
	report, err := h.enhancer.Enhance(c.Request.Context(), id, eval.EnhancementParams{
		Prompt:     prompt,
		Domain:     domain,
		Model:      h.modelOrDefault(req.Model),
		AutoRetest: req.AutoRetest,
	})
	if err != nil {
		responses.HandleError(c, err, "enhancement failed")
		return
	}

	c.JSON(http.StatusOK, enhanceResponse{
		RequestID:         middlewares.RequestIDFromContext(c),
		EnhancementReport: report,
	})
}

// ListModels godoc
// @Summary List the models this deployment can evaluate against
// @Tags Evaluation API
// @Produce json
// @Router /v1/models [get]
func (h *EvalHandler) ListModels(c *gin.Context) {
	entries := h.catalog.List()
	c.JSON(http.StatusOK, responses.ListResponse[model.Entry]{
		Total:   len(entries),
		Results: entries,
	})
}

func (h *EvalHandler) buildEvaluationParams(c *gin.Context, req EvaluateRequest) (eval.EvaluationParams, eval.Identity, bool) {
	var params eval.EvaluationParams
	var id eval.Identity

	prompt, err := validatePrompt(req.Prompt)
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			err.Error(), "a27c5e80-94d1-4f63-b8a2-07e9c4d6f135")
		return params, id, false
	}
	domain, err := validateDomain(req.Domain)
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			err.Error(), "48d03b96-2a75-4e18-9c4d-f61e80b2a593")
		return params, id, false
	}
	example, err := validateExampleExpected(req.ExampleExpected)
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			err.Error(), "c60e94d2-37b8-4a51-86f0-19d5e7c2b4a8")
		return params, id, false
	}
	numCases, err := validateNumCases(req.NumCases, h.maxCases)
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			err.Error(), "31f7a0c8-5d42-4b96-a7e3-d80c125f6e94")
		return params, id, false
	}
	method, err := eval.ParseScoreMethod(req.ScoreMethod)
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			err.Error(), "94b6e1d7-08a3-4c25-bf68-52c7d093ae41")
		return params, id, false
	}
	ref, err := req.Credential.toReference()
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			err.Error(), "67a3f8e0-c1d5-4792-b046-8e21d9c5f738")
		return params, id, false
	}

	params = eval.EvaluationParams{
		Prompt:          prompt,
		Domain:          domain,
		Model:           h.modelOrDefault(req.Model),
		NumCases:        numCases,
		ScoreMethod:     method,
		ExampleExpected: example,
	}
	id = eval.Identity{Credential: ref, OwnerID: middlewares.OwnerFromContext(c)}
	return params, id, true
}

func (h *EvalHandler) modelOrDefault(m string) model.ID {
	if m == "" {
		return h.defaultModel
	}
	return model.ID(m)
}
