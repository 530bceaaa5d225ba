package controller

import (
	"errors"
	"net/http"

	"ngramlm/internal/service/ngram"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NGramController struct {
	ngramService *ngram.NGramService
	logger       *zap.Logger
}

func NewNGramController(ngramService *ngram.NGramService, logger *zap.Logger) *NGramController {
	return &NGramController{
		ngramService: ngramService,
		logger:       logger,
	}
}

// TrainRequest trains a model either on inline sentences or on a corpus path
type TrainRequest struct {
	Name      string     `json:"name" binding:"required"`
	Order     int        `json:"order"`
	Sentences [][]string `json:"sentences"`
	Path      string     `json:"path"`
	Save      bool       `json:"save"`
}

// ScoreRequest carries either a tokenized sentence or raw text to tokenize
type ScoreRequest struct {
	Sentence []string `json:"sentence"`
	Text     string   `json:"text"`
	Language string   `json:"language"`
}

type GenerateRequest struct {
	Count int `json:"count"`
}

type EvaluateRequest struct {
	Sentences [][]string `json:"sentences" binding:"required"`
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ngram.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, ngram.ErrInvalidOrder),
		errors.Is(err, ngram.ErrContextLength),
		errors.Is(err, ngram.ErrEmptySentence),
		errors.Is(err, ngram.ErrEmptyTestSet),
		errors.Is(err, ngram.ErrInvalidName),
		errors.Is(err, ngram.ErrUnknownLanguage),
		errors.Is(err, ngram.ErrTokenLimit),
		errors.Is(err, ngram.ErrTooManySentences):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (nc *NGramController) fail(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		nc.logger.Error(message, zap.String("path", c.Request.URL.Path), zap.Error(err))
	} else {
		nc.logger.Debug(message, zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

func (nc *NGramController) bind(c *gin.Context, request any) bool {
	if err := c.ShouldBindJSON(request); err != nil {
		nc.logger.Error("Invalid request payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return false
	}
	return true
}

func (nc *NGramController) ListModels(c *gin.Context) {
	saved, err := nc.ngramService.Saved()
	if err != nil {
		nc.fail(c, "Failed to list saved models", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"models": nc.ngramService.List(),
		"saved":  saved,
	})
}

func (nc *NGramController) TrainModel(c *gin.Context) {
	var request TrainRequest
	if !nc.bind(c, &request) {
		return
	}
	if request.Path == "" && len(request.Sentences) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Either sentences or path is required",
		})
		return
	}

	nc.logger.Info("Training model",
		zap.String("name", request.Name),
		zap.Int("order", request.Order),
		zap.String("path", request.Path))

	var (
		info *ngram.ModelInfo
		err  error
	)
	if request.Path != "" {
		info, err = nc.ngramService.TrainFromPath(c.Request.Context(), request.Name, request.Order, request.Path, true)
	} else {
		info, err = nc.ngramService.Train(c.Request.Context(), request.Name, request.Order, request.Sentences)
		if err == nil && request.Save {
			err = nc.ngramService.Save(request.Name)
		}
	}
	if err != nil {
		nc.fail(c, "Failed to train model", err)
		return
	}

	c.JSON(http.StatusCreated, info)
}

func (nc *NGramController) GetModel(c *gin.Context) {
	info, err := nc.ngramService.Stats(c.Param("name"))
	if err != nil {
		nc.fail(c, "Failed to get model", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (nc *NGramController) DeleteModel(c *gin.Context) {
	name := c.Param("name")
	deleteFile := c.Query("delete_file") == "true"
	if err := nc.ngramService.Remove(name, deleteFile); err != nil {
		nc.fail(c, "Failed to delete model", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": name, "file_deleted": deleteFile})
}

func (nc *NGramController) SaveModel(c *gin.Context) {
	name := c.Param("name")
	if err := nc.ngramService.Save(name); err != nil {
		nc.fail(c, "Failed to save model", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": name})
}

func (nc *NGramController) LoadModel(c *gin.Context) {
	info, err := nc.ngramService.Load(c.Param("name"))
	if err != nil {
		nc.fail(c, "Failed to load model", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (nc *NGramController) ScoreSentence(c *gin.Context) {
	var request ScoreRequest
	if !nc.bind(c, &request) {
		return
	}

	sentence := request.Sentence
	if len(sentence) == 0 && request.Text != "" {
		tokens, err := nc.ngramService.Tokenize(c.Request.Context(), request.Language, request.Text)
		if err != nil {
			nc.fail(c, "Failed to tokenize text", err)
			return
		}
		sentence = tokens
	}

	score, err := nc.ngramService.Score(c.Request.Context(), c.Param("name"), sentence)
	if err != nil {
		nc.fail(c, "Failed to score sentence", err)
		return
	}
	c.JSON(http.StatusOK, newScoreResponse(score))
}

func (nc *NGramController) GenerateSentences(c *gin.Context) {
	var request GenerateRequest
	if c.Request.ContentLength > 0 && !nc.bind(c, &request) {
		return
	}
	if request.Count <= 0 {
		request.Count = 1
	}

	sentences, err := nc.ngramService.Generate(c.Request.Context(), c.Param("name"), request.Count)
	if err != nil {
		nc.fail(c, "Failed to generate sentences", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sentences": sentences})
}

func (nc *NGramController) EvaluateModel(c *gin.Context) {
	var request EvaluateRequest
	if !nc.bind(c, &request) {
		return
	}

	eval, err := nc.ngramService.Evaluate(c.Request.Context(), c.Param("name"), request.Sentences)
	if err != nil {
		nc.fail(c, "Failed to evaluate model", err)
		return
	}
	c.JSON(http.StatusOK, newEvaluationResponse(eval))
}

// GetDistribution returns the next-token distribution for
// ?context=a&context=b, one parameter per context token in order. An absent
// context is the empty tuple of a unigram model.
func (nc *NGramController) GetDistribution(c *gin.Context) {
	prev := c.QueryArray("context")
	if prev == nil {
		prev = []string{}
	}

	dist, err := nc.ngramService.Distribution(c.Param("name"), prev)
	if err != nil {
		nc.fail(c, "Failed to get distribution", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"context":      prev,
		"distribution": dist,
	})
}
