// Command simulation drives a running server through one query per intent and
// prints a coloured transcript.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type scenario struct {
	Name       string
	Query      string
	TaskInputs map[string]interface{}
}

var scenarios = []scenario{
	{Name: "answer generation", Query: "Explain the process of photosynthesis in detail"},
	{Name: "doubt clarification", Query: "I don't understand why the light reactions need water"},
	{
		Name:  "answer evaluation",
		Query: "Evaluate my answer to: What is osmosis? My answer: water moves across a membrane from low to high solute concentration",
		TaskInputs: map[string]interface{}{
			"max_score":        5,
			"reference_answer": "Osmosis is the movement of water molecules across a semi-permeable membrane from a region of lower solute concentration to a region of higher solute concentration.",
		},
	},
	{Name: "question generation", Query: "Generate 3 mcq questions on cell division", TaskInputs: map[string]interface{}{"difficulty": "easy"}},
	{Name: "exam paper generation", Query: "Create an exam paper on plant biology"},
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type queryResult struct {
	RequestId        string   `json:"request_id"`
	Status           string   `json:"status"`
	Intent           string   `json:"intent"`
	Confidence       float64  `json:"confidence"`
	Method           string   `json:"classification_method"`
	Response         string   `json:"response"`
	NodesVisited     []string `json:"nodes_visited"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	Metadata         struct {
		DocumentTypesUsed     []string `json:"document_types_used"`
		NumDocumentsRetrieved int      `json:"num_documents_retrieved"`
		Degradations          []struct {
			Kind   string `json:"kind"`
			Detail string `json:"detail"`
		} `json:"degradations"`
	} `json:"metadata"`
}

func main() {
	_ = godotenv.Load()

	baseURL := flag.String("url", "http://localhost:3000/api/workflow/v1", "workflow API base URL")
	user := flag.String("user", "", "requester id (random when empty)")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		color.Red("JWT_SECRET is not set")
		os.Exit(1)
	}
	userID := uuid.New()
	if *user != "" {
		userID = uuid.MustParse(*user)
	}
	token, err := signToken(secret, userID)
	if err != nil {
		color.Red("Failed to sign token: %v", err)
		os.Exit(1)
	}

	color.Cyan("=== Study Assistant Workflow Simulation ===")
	fmt.Printf("Requester: %s\n", userID)
	sessionID := uuid.New()

	failures := 0
	for i, sc := range scenarios {
		color.Yellow("\n[%d] %s", i+1, sc.Name)
		fmt.Printf("USER: %s\n", sc.Query)

		start := time.Now()
		status, res, err := sendQuery(*baseURL, token, sessionID, sc)
		if err != nil {
			color.Red("Request failed: %v", err)
			failures++
			continue
		}
		printResult(status, res, time.Since(start))
		if res.Status != "completed" {
			failures++
		}
	}

	if failures > 0 {
		color.Red("\n%d of %d scenarios did not complete", failures, len(scenarios))
		os.Exit(1)
	}
	color.Green("\nAll %d scenarios completed", len(scenarios))
}

func signToken(secret string, userID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"role":    "user",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func sendQuery(baseURL, token string, sessionID uuid.UUID, sc scenario) (int, queryResult, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"query":       sc.Query,
		"session_id":  sessionID,
		"task_inputs": sc.TaskInputs,
	})
	req, err := http.NewRequest(http.MethodPost, baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return 0, queryResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return 0, queryResult{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, queryResult{}, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return resp.StatusCode, queryResult{}, fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return resp.StatusCode, queryResult{}, fmt.Errorf("%d %s", env.Code, env.Message)
	}
	var res queryResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		return resp.StatusCode, queryResult{}, fmt.Errorf("decode result: %w", err)
	}
	return resp.StatusCode, res, nil
}

func printResult(status int, res queryResult, elapsed time.Duration) {
	if res.Status == "completed" {
		color.Green("HTTP %d | %s", status, res.Status)
	} else {
		color.Red("HTTP %d | %s", status, res.Status)
	}
	fmt.Printf("Intent: %s (%.2f via %s)\n", res.Intent, res.Confidence, res.Method)
	fmt.Printf("Path:   %v\n", res.NodesVisited)
	fmt.Printf("Chunks: %d %v\n", res.Metadata.NumDocumentsRetrieved, res.Metadata.DocumentTypesUsed)
	for _, d := range res.Metadata.Degradations {
		color.Magenta("Degraded: %s (%s)", d.Kind, d.Detail)
	}
	color.White("AI (%dms server, %v total):", res.ProcessingTimeMs, elapsed.Round(time.Millisecond))
	fmt.Println(res.Response)
}
