package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gitlab.com/tozd/go/errors"

	"imageconvert/internal/codec"
	"imageconvert/internal/config"
	"imageconvert/internal/converter"
	"imageconvert/internal/statistics"
)

type Server struct {
	cfg        *config.Config
	log        *logrus.Logger
	registry   *codec.Registry
	router     *mux.Router
	httpServer *http.Server
	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]bool
	wsMutex    sync.Mutex

	// Current job state
	operationMutex sync.RWMutex
	isRunning      bool
	cancel         context.CancelFunc
	engine         *converter.Engine
	currentStats   *statistics.Statistics
	lastJob        *JobInfo
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type ScanRequest struct {
	Directory       string   `json:"directory"`
	SourceExtension string   `json:"source_extension"`
	Exclude         []string `json:"exclude,omitempty"`
}

type ConvertRequest struct {
	Directory       string   `json:"directory"`
	SourceExtension string   `json:"source_extension"`
	TargetExtension string   `json:"target_extension"`
	Compression     int      `json:"compression"`
	Overwrite       *bool    `json:"overwrite,omitempty"`
	Exclude         []string `json:"exclude,omitempty"`
}

type DeleteRequest struct {
	FileClass string `json:"file_class"`
}

// JobInfo describes the current or most recent conversion job.
type JobInfo struct {
	Directory       string    `json:"directory"`
	SourceExtension string    `json:"source_extension"`
	TargetExtension string    `json:"target_extension"`
	Compression     int       `json:"compression"`
	StartedAt       time.Time `json:"started_at"`
	Converted       int       `json:"converted"`
	Finished        bool      `json:"finished"`
	Error           string    `json:"error,omitempty"`
}

type FormatInfo struct {
	Extension string `json:"extension"`
	Format    string `json:"format"`
	Decode    bool   `json:"decode"`
	Encode    bool   `json:"encode"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewServer(cfg *config.Config, log *logrus.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		log:       log,
		registry:  codec.NewRegistry(),
		router:    mux.NewRouter(),
		wsClients: make(map[*websocket.Conn]bool),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/formats", s.handleFormats).Methods("GET")
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/scan", s.handleScan).Methods("POST")
	api.HandleFunc("/convert", s.handleConvert).Methods("POST")
	api.HandleFunc("/stop", s.handleStop).Methods("POST")
	api.HandleFunc("/delete", s.handleDelete).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Infof("Starting web server on http://localhost%s", addr)
	return s.httpServer.ListenAndServe()
}

// Stop cancels a running job and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.operationMutex.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.operationMutex.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	caps := s.registry.Capabilities()
	formats := make([]FormatInfo, 0, len(caps))
	for _, c := range caps {
		formats = append(formats, FormatInfo{
			Extension: c.Extension,
			Format:    c.Format.String(),
			Decode:    c.Decode,
			Encode:    c.Encode,
		})
	}
	s.writeJSON(w, APIResponse{Success: true, Data: formats})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.operationMutex.RLock()
	running := s.isRunning
	stats := s.currentStats
	var job *JobInfo
	if s.lastJob != nil {
		j := *s.lastJob
		job = &j
	}
	s.operationMutex.RUnlock()

	var statsData interface{}
	if stats != nil {
		statsData = stats.Snapshot()
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"running":    running,
			"job":        job,
			"statistics": statsData,
		},
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Directory == "" {
		s.writeError(w, "Directory is required", http.StatusBadRequest)
		return
	}

	exclude := req.Exclude
	if exclude == nil {
		exclude = s.cfg.Conversion.Exclude
	}
	engine := converter.New(config.ExpandPath(req.Directory), req.SourceExtension, "", s.cfg.Compression,
		converter.WithLogger(s.log),
		converter.WithExclude(exclude...),
	)

	files, err := engine.Scan(r.Context())
	if err != nil {
		s.writeError(w, err.Error(), statusFor(err))
		return
	}
	if files == nil {
		files = []string{}
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: fmt.Sprintf("Found %d files", len(files)),
		Data:    files,
	})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Directory = config.ExpandPath(req.Directory)
	if req.Compression == 0 {
		req.Compression = s.cfg.Compression
	}
	if err := s.validateConvert(req); err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Claim the slot before replying so two requests cannot both start.
	s.operationMutex.Lock()
	if s.isRunning {
		s.operationMutex.Unlock()
		s.writeError(w, "Operation already in progress", http.StatusConflict)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.isRunning = true
	s.cancel = cancel
	s.currentStats = statistics.NewStatistics()
	s.engine = s.newEngine(req, s.currentStats)
	s.lastJob = &JobInfo{
		Directory:       req.Directory,
		SourceExtension: converter.NormalizeExtension(req.SourceExtension),
		TargetExtension: converter.NormalizeExtension(req.TargetExtension),
		Compression:     req.Compression,
		StartedAt:       time.Now(),
	}
	engine, stats := s.engine, s.currentStats
	s.operationMutex.Unlock()

	go s.runConvertAsync(ctx, engine, stats)

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "Conversion started",
	})
}

func (s *Server) validateConvert(req ConvertRequest) error {
	if req.Directory == "" {
		return errors.New("Directory is required")
	}
	if info, err := os.Stat(req.Directory); err != nil || !info.IsDir() {
		return errors.New("Directory does not exist")
	}
	if req.Compression < 1 || req.Compression > 100 {
		return errors.Errorf("Compression must be between 1 and 100, got %d", req.Compression)
	}
	src := converter.NormalizeExtension(req.SourceExtension)
	if c, ok := s.registry.Lookup("." + src); !ok || !c.Decode || src == "" {
		return &converter.FormatError{Role: converter.RoleSource, Extension: src}
	}
	dst := converter.NormalizeExtension(req.TargetExtension)
	if c, ok := s.registry.Lookup("." + dst); !ok || !c.Encode || dst == "" {
		return &converter.FormatError{Role: converter.RoleTarget, Extension: dst}
	}
	return nil
}

func (s *Server) newEngine(req ConvertRequest, stats *statistics.Statistics) *converter.Engine {
	overwrite := s.cfg.Conversion.Overwrite
	if req.Overwrite != nil {
		overwrite = *req.Overwrite
	}
	exclude := req.Exclude
	if exclude == nil {
		exclude = s.cfg.Conversion.Exclude
	}
	return converter.New(req.Directory, req.SourceExtension, req.TargetExtension, req.Compression,
		converter.WithLogger(s.log),
		converter.WithObserver(stats),
		converter.WithObserver(&wsObserver{server: s}),
		converter.WithOverwrite(overwrite),
		converter.WithExclude(exclude...),
		converter.WithAVIFSpeed(s.cfg.Conversion.AVIFSpeed),
	)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.operationMutex.RLock()
	cancel := s.cancel
	running := s.isRunning
	s.operationMutex.RUnlock()

	if !running || cancel == nil {
		s.writeError(w, "No operation in progress", http.StatusConflict)
		return
	}
	cancel()

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "Stop requested",
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	class, err := converter.ParseFileClass(req.FileClass)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.operationMutex.Lock()
	if s.isRunning {
		s.operationMutex.Unlock()
		s.writeError(w, "Operation already in progress", http.StatusConflict)
		return
	}
	engine := s.engine
	if engine == nil {
		s.operationMutex.Unlock()
		s.writeError(w, "No conversion job to delete files from", http.StatusBadRequest)
		return
	}
	s.isRunning = true
	s.operationMutex.Unlock()

	success, total, err := engine.DeleteFiles(class)

	s.operationMutex.Lock()
	s.isRunning = false
	s.operationMutex.Unlock()

	result := map[string]interface{}{
		"file_class": class,
		"success":    success,
		"total":      total,
	}
	if err != nil {
		result["error"] = err.Error()
		s.broadcastWSMessage("delete_error", result)
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.broadcastWSMessage("files_deleted", result)
	s.writeJSON(w, APIResponse{
		Success: true,
		Message: fmt.Sprintf("Deleted %d/%d %s files", success, total, class),
		Data:    result,
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	s.log.Debug("WebSocket client connected")

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
		s.log.Debug("WebSocket client disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) runConvertAsync(ctx context.Context, engine *converter.Engine, stats *statistics.Statistics) {
	err := engine.Convert(ctx)
	stats.Finalize()

	s.operationMutex.Lock()
	s.isRunning = false
	s.cancel = nil
	s.lastJob.Finished = true
	s.lastJob.Converted = engine.ConversionCount()
	if err != nil {
		s.lastJob.Error = err.Error()
	}
	s.operationMutex.Unlock()

	if err != nil {
		s.log.WithError(err).Error("Conversion job failed")
		s.broadcastWSMessage("convert_error", map[string]interface{}{
			"error":     err.Error(),
			"converted": engine.ConversionCount(),
		})
		return
	}
	s.broadcastWSMessage("convert_completed", map[string]interface{}{
		"converted":  engine.ConversionCount(),
		"statistics": stats.Snapshot(),
	})
}

// broadcastWSMessage sends one message to every client. Writes are
// serialized because a websocket connection allows only one writer.
func (s *Server) broadcastWSMessage(messageType string, data interface{}) {
	message := WSMessage{
		Type: messageType,
		Data: data,
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		s.log.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()

	for conn := range s.wsClients {
		if err := conn.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
			s.log.Errorf("Failed to write WebSocket message: %v", err)
			delete(s.wsClients, conn)
			conn.Close()
		}
	}
}

func (s *Server) clientCount() int {
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()
	return len(s.wsClients)
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   message,
	})
}

func statusFor(err error) int {
	if errors.Is(err, converter.ErrDirectoryNotFound) || errors.Is(err, converter.ErrUnsupportedFormat) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
