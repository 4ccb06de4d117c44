package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Shared server state. The gateway is safe for concurrent use and shared by
// every in-flight deliberation; the page cache fronts case-context fetches.
var (
	gateway   Generator
	pageCache *PageCache
)

func main() {
	LoadConfig()

	gateway = NewOpenRouterClient(OpenRouterAPIURL, OpenRouterAPIKey, ModelQueryTimeout)
	pageCache = NewPageCache(PageCacheTTL)

	router := NewRouter()

	log.Printf("Starting LLM-Counsel backend on port %s...", APIPort)
	if err := router.Run(":" + APIPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter() *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestBodySize)
		c.Next()
	})

	router.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if len(CORSAllowedOrigins) > 0 {
				for _, allowed := range CORSAllowedOrigins {
					if origin == allowed {
						return true
					}
				}
				return false
			}
			// Development: accept any localhost origin.
			return strings.HasPrefix(origin, "http://localhost") ||
				strings.HasPrefix(origin, "http://127.0.0.1")
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: true,
	}))

	router.GET("/health", healthCheck)

	router.GET("/api/config/team", getTeamConfigHandler)
	router.GET("/api/config/personas", getPersonasHandler)
	router.GET("/api/config/jurisdictions", getJurisdictionsHandler)

	router.GET("/api/matters", listMattersHandler)
	router.POST("/api/matters", createMatterHandler)
	router.GET("/api/matters/:id", getMatterHandler)
	router.PUT("/api/matters/:id", updateMatterHandler)
	router.DELETE("/api/matters/:id", deleteMatterHandler)
	router.POST("/api/matters/:id/messages", submitQuestionHandler)

	router.POST("/api/deliberate", quickDeliberateHandler)
	router.POST("/api/fetch-url", fetchURLHandler)

	return router
}

// healthCheck returns service status.
// GET /health
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "llm-counsel",
	})
}

// getTeamConfigHandler returns the current team plus available options.
// GET /api/config/team
func getTeamConfigHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"counsel_team":            CounselTeam,
		"lead_counsel_model":      LeadCounselModel,
		"available_personas":      AllPersonaInfo(),
		"available_jurisdictions": AllJurisdictions(),
	})
}

// getPersonasHandler returns all available attorney personas.
// GET /api/config/personas
func getPersonasHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"personas": AllPersonaInfo()})
}

// getJurisdictionsHandler returns all supported jurisdictions.
// GET /api/config/jurisdictions
func getJurisdictionsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jurisdictions": AllJurisdictions()})
}

// listMattersHandler lists all matters with summary info, newest first.
// GET /api/matters
func listMattersHandler(c *gin.Context) {
	matters, err := ListMatters()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to list matters: %v", err),
		})
		return
	}
	c.JSON(http.StatusOK, matters)
}

// createMatterHandler creates a new matter.
// POST /api/matters
func createMatterHandler(c *gin.Context) {
	var request CreateMatterRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	matter, err := CreateMatter(request)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to create matter: %v", err),
		})
		return
	}
	c.JSON(http.StatusOK, matter)
}

// getMatterHandler returns a specific matter by ID.
// GET /api/matters/:id
func getMatterHandler(c *gin.Context) {
	matter, err := GetMatter(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to get matter: %v", err),
		})
		return
	}
	if matter == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Matter not found"})
		return
	}
	c.JSON(http.StatusOK, matter)
}

// updateMatterHandler updates a matter's metadata.
// PUT /api/matters/:id
func updateMatterHandler(c *gin.Context) {
	var request UpdateMatterRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	matter, err := UpdateMatterMetadata(c.Param("id"), request)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to update matter: %v", err),
		})
		return
	}
	if matter == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Matter not found"})
		return
	}
	c.JSON(http.StatusOK, matter)
}

// deleteMatterHandler deletes a matter.
// DELETE /api/matters/:id
func deleteMatterHandler(c *gin.Context) {
	deleted, err := DeleteMatter(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to delete matter: %v", err),
		})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Matter not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": c.Param("id")})
}

// submitQuestionHandler runs the 3-stage deliberation for a matter.
// POST /api/matters/:id/messages - batch by default, SSE when "stream" is
// set. Matter metadata supplies practice area and jurisdiction defaults;
// the request may override them.
func submitQuestionHandler(c *gin.Context) {
	matterID := c.Param("id")

	var request SubmitQuestionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	matter, err := GetMatter(matterID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to get matter: %v", err),
		})
		return
	}
	if matter == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Matter not found"})
		return
	}

	practiceArea := request.PracticeArea
	if practiceArea == "" {
		practiceArea = matter.Metadata.PracticeArea
	}
	jurisdiction := request.Jurisdiction
	if jurisdiction == "" {
		jurisdiction = matter.Metadata.Jurisdiction
	}

	if err := AddUserMessage(matterID, request.Content, request.Context); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to add user message: %v", err),
		})
		return
	}

	engine := NewDeliberation(CounselTeam, LeadCounselModel, gateway)
	delibReq := DeliberationRequest{
		Question:     request.Content,
		Context:      request.Context,
		PracticeArea: practiceArea,
		Jurisdiction: jurisdiction,
	}

	if request.Stream {
		streamDeliberation(c, engine, delibReq, matterID)
		return
	}

	result, err := engine.Run(c.Request.Context(), delibReq)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Deliberation failed: %v", err),
		})
		return
	}

	if err := AddAssistantMessage(matterID, result); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to save result: %v", err),
		})
		return
	}

	matter, _ = GetMatter(matterID)
	c.JSON(http.StatusOK, gin.H{
		"matter_id": matterID,
		"result":    result,
		"messages":  matter.Messages,
	})
}

// quickDeliberateHandler runs a one-off deliberation without persisting.
// POST /api/deliberate
func quickDeliberateHandler(c *gin.Context) {
	var request SubmitQuestionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	engine := NewDeliberation(CounselTeam, LeadCounselModel, gateway)
	delibReq := DeliberationRequest{
		Question:     request.Content,
		Context:      request.Context,
		PracticeArea: request.PracticeArea,
		Jurisdiction: request.Jurisdiction,
	}

	if request.Stream {
		streamDeliberation(c, engine, delibReq, "")
		return
	}

	result, err := engine.Run(c.Request.Context(), delibReq)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Deliberation failed: %v", err),
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// streamDeliberation forwards deliberation events to the client as SSE:
// one "event: <type>" + "data: <json>" unit per event, terminated by a
// distinguished "complete" event. When matterID is non-empty the finished
// result is saved to the matter.
func streamDeliberation(c *gin.Context, engine *Deliberation, req DeliberationRequest, matterID string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// Client disconnect cancels the request context, which aborts every
	// in-flight model call as a group.
	ctx := c.Request.Context()

	var (
		stage1 map[string]Analysis
		stage2 *Stage2Result
		stage3 *Stage3Result
	)

	for event := range engine.RunStream(ctx, req) {
		switch event.Type {
		case "stage1_complete":
			if data, ok := event.Data.(map[string]Analysis); ok {
				stage1 = data
			}
		case "stage2_complete":
			if data, ok := event.Data.(Stage2Result); ok {
				stage2 = &data
			}
		case "stage3_complete":
			if data, ok := event.Data.(Stage3Result); ok {
				stage3 = &data
			}
		}
		writeSSEEvent(c, event.Type, event.Data)
	}

	if stage3 == nil {
		// The stream already carried a terminal error event; nothing to
		// persist.
		return
	}

	if matterID != "" && stage2 != nil {
		result := &DeliberationResult{Stage1: stage1, Stage2: *stage2, Stage3: *stage3}
		if err := AddAssistantMessage(matterID, result); err != nil {
			writeSSEEvent(c, "error", gin.H{"message": fmt.Sprintf("Failed to save result: %v", err)})
			return
		}
	}

	writeSSEEvent(c, "complete", gin.H{"matter_id": matterID})
}

// writeSSEEvent writes one SSE unit and flushes it to the client.
func writeSSEEvent(c *gin.Context, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("Failed to marshal SSE event %s: %v", eventType, err)
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", eventType, payload)
	c.Writer.Flush()
}

// fetchURLHandler fetches a web page and returns its readable text for use
// as case context.
// POST /api/fetch-url - Body: {"url": "https://..."}
func fetchURLHandler(c *gin.Context) {
	var request struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	if content, ok := pageCache.Get(request.URL); ok {
		c.JSON(http.StatusOK, gin.H{"content": content, "cached": true})
		return
	}

	content, err := FetchURLContent(c.Request.Context(), request.URL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to fetch URL content: %v", err),
		})
		return
	}
	pageCache.Set(request.URL, content)

	c.JSON(http.StatusOK, gin.H{
		"content":               content,
		"cached":                false,
		"detected_jurisdiction": DetectJurisdiction(content),
	})
}
