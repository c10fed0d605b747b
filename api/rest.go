package api

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"derma-inference-service/chat"
	"derma-inference-service/data"
	"derma-inference-service/decision"
	"derma-inference-service/service"
)

const (
	ModelType  = "Derm Foundation + Logistic Regression"
	Disclaimer = "This is for educational purposes only. Please consult a dermatologist for professional diagnosis."
)

// AllowedExtensions lists the accepted upload extensions.
var AllowedExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true, "bmp": true,
}

// Predictor runs the classification pipeline on a stored image.
type Predictor interface {
	Ready() bool
	Classes() []string
	PredictFile(ctx context.Context, path string) (decision.Set, error)
}

type UploadOptions struct {
	Dir        string
	MaxBytes   int
	SessionTTL time.Duration
}

type FileUploadResponse struct {
	Success           bool         `json:"success"`
	Predictions       decision.Set `json:"predictions"`
	Message           string       `json:"message"`
	Disclaimer        string       `json:"disclaimer"`
	AnalysisID        string       `json:"analysis_id"`
	AnalysisTimestamp time.Time    `json:"analysis_timestamp"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Success       bool   `json:"success"`
	Response      string `json:"response"`
	HasPrediction bool   `json:"has_prediction"`
	LowConfidence bool   `json:"low_confidence"`
	Source        string `json:"source"`
}

func HandleHealth(predictor Predictor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":       "healthy",
			"model_loaded": predictor.Ready(),
			"model_type":   ModelType,
			"classes":      predictor.Classes(),
			"timestamp":    time.Now().Format(time.RFC3339),
		})
	}
}

func HandleClasses(classes []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"classes": classes,
			"count":   len(classes),
		})
	}
}

// HandlePredict validates the "file" upload, stores it for the duration of
// the request, classifies it and records the result as the session's last
// prediction.
func HandlePredict(predictor Predictor, store *data.LastPredictionStore, opts UploadOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !predictor.Ready() {
			return fail(c, service.ErrModelNotReady)
		}

		path, err := saveUpload(c, opts)
		if err != nil {
			return fail(c, err)
		}
		defer func() {
			if err := os.Remove(path); err != nil {
				log.Warnf("Could not delete file %s: %v", path, err)
			}
		}()
		log.Infof("File saved: %s", path)

		ctx := c.UserContext()
		predictions, err := predictor.PredictFile(ctx, path)
		if err != nil {
			return fail(c, err)
		}
		log.Infof("Prediction results: %v", predictions)

		id := ensureSession(c, opts.SessionTTL)
		if _, err := store.Save(ctx, id, predictions); err != nil {
			log.Warnf("Could not store prediction for session %s: %v", id, err)
		}

		return c.JSON(FileUploadResponse{
			Success:           true,
			Predictions:       predictions,
			Message:           "Prediction completed successfully",
			Disclaimer:        Disclaimer,
			AnalysisID:        uuid.NewString(),
			AnalysisTimestamp: time.Now(),
		})
	}
}

// saveUpload validates the multipart "file" field and writes it under
// opts.Dir with a generated name.
func saveUpload(c *fiber.Ctx, opts UploadOptions) (string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return "", &ValidationError{Message: "No file part in the request"}
	}
	files := form.File["file"]
	if len(files) == 0 {
		if _, ok := form.Value["file"]; ok {
			return "", &ValidationError{Message: "No file selected"}
		}
		return "", &ValidationError{Message: "No file part in the request"}
	}

	file := files[0]
	if file.Filename == "" {
		return "", &ValidationError{Message: "No file selected"}
	}
	ext, ok := allowedExtension(file.Filename)
	if !ok {
		return "", &ValidationError{Message: "File type not allowed. Please upload an image (PNG, JPG, JPEG, GIF, WEBP or BMP)"}
	}
	if file.Size == 0 {
		return "", &ValidationError{Message: "Uploaded file is empty"}
	}
	if opts.MaxBytes > 0 && file.Size > int64(opts.MaxBytes) {
		return "", &ValidationError{Message: fileTooLarge(opts.MaxBytes)}
	}

	name := time.Now().Format("20060102_150405") + "_" + uuid.NewString() + "." + ext
	path := filepath.Join(opts.Dir, name)
	if err := c.SaveFile(file, path); err != nil {
		return "", err
	}
	return path, nil
}

func allowedExtension(filename string) (string, bool) {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return "", false
	}
	ext := strings.ToLower(filename[i+1:])
	return ext, AllowedExtensions[ext]
}

// HandleChat answers a chat message using the session's last prediction.
func HandleChat(assistant *chat.Assistant, store *data.LastPredictionStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ChatRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, &ValidationError{Message: "Invalid request body"})
		}
		message := strings.TrimSpace(req.Message)
		if message == "" {
			return fail(c, &ValidationError{Message: "No message provided"})
		}
		log.Infof("Chatbot query: %s", message)

		ctx := c.UserContext()
		var last *data.LastPrediction
		if entry, ok, err := store.Get(ctx, sessionID(c)); err != nil {
			log.Warnf("Could not load last prediction: %v", err)
		} else if ok {
			last = &entry
		}

		answer := assistant.Ask(ctx, message, last)
		return c.JSON(ChatResponse{
			Success:       true,
			Response:      answer.Text,
			HasPrediction: answer.HasPrediction,
			LowConfidence: answer.LowConfidence,
			Source:        answer.Source,
		})
	}
}

// Dependencies are the collaborators of the REST server.
type Dependencies struct {
	Predictor Predictor
	Store     *data.LastPredictionStore
	Assistant *chat.Assistant
	Classes   []string
	Upload    UploadOptions
	StaticDir string
	AccessLog bool
}

// NewRESTServer builds the fiber application with all routes registered.
func NewRESTServer(deps Dependencies) *fiber.App {
	// leave room for multipart framing around a maximum-size file
	bodyLimit := deps.Upload.MaxBytes + 1<<20

	app := fiber.New(fiber.Config{
		AppName:      "derma-inference-service",
		BodyLimit:    bodyLimit,
		ErrorHandler: ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	if deps.AccessLog {
		app.Use(logger.New())
	}

	app.Get("/health", HandleHealth(deps.Predictor))
	app.Get("/classes", HandleClasses(deps.Classes))
	app.Post("/predict", HandlePredict(deps.Predictor, deps.Store, deps.Upload))
	app.Post("/chatbot", HandleChat(deps.Assistant, deps.Store))

	if deps.StaticDir != "" {
		if info, err := os.Stat(deps.StaticDir); err == nil && info.IsDir() {
			app.Static("/", deps.StaticDir)
		} else {
			log.Warnf("Static directory %s not found, website disabled", deps.StaticDir)
		}
	}
	return app
}
