// Package router routes translation requests to translator Lambda functions.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// PivotLang is the language used to chain two routes when no direct route exists.
const PivotLang = "en"

// Step is one translator Lambda call in a route.
type Step struct {
	Function string `yaml:"function" json:"function"`
	// TargetLang is passed to multi-target translators; empty otherwise.
	TargetLang string `yaml:"target_lang,omitempty" json:"target_lang,omitempty"`
}

// Routes maps "<source>-<target>" to the steps that translate that pair.
type Routes map[string][]Step

// DefaultRoutes returns the routes of the stock translator deployment.
func DefaultRoutes() Routes {
	return Routes{
		"en-gu": {{Function: "quizlate-translator-en-indic", TargetLang: "gu"}},
		"en-hi": {{Function: "quizlate-translator-en-indic", TargetLang: "hi"}},
		"gu-en": {{Function: "quizlate-translator-indic-en"}},
		"hi-en": {{Function: "quizlate-translator-indic-en"}},
	}
}

// LambdaInvoker is the subset of the Lambda client the router uses.
type LambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Router implements gateway.Provider on top of translator Lambdas.
type Router struct {
	lambdaClient LambdaInvoker
	routes       Routes
	environment  string
}

// TranslatorRequest is the request format for translator Lambdas (chunked mode).
type TranslatorRequest struct {
	Chunks     [][]string `json:"chunks"`
	TargetLang string     `json:"target_lang,omitempty"`
}

// TranslatorResponse is the response format from translator Lambdas (chunked mode).
type TranslatorResponse struct {
	Translations [][]string `json:"translations"`
	Error        string     `json:"error,omitempty"`
}

// New creates a Router using the default AWS configuration chain.
// An empty environment falls back to $ENVIRONMENT, then "dev".
func New(ctx context.Context, routes Routes, env string) (*Router, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "dev"
	}

	return NewWithClient(lambda.NewFromConfig(cfg), routes, env), nil
}

// NewWithClient creates a Router around an existing Lambda client.
// Function names get "-<environment>" appended unless environment is empty.
func NewWithClient(client LambdaInvoker, routes Routes, environment string) *Router {
	if routes == nil {
		routes = DefaultRoutes()
	}
	return &Router{
		lambdaClient: client,
		routes:       routes,
		environment:  environment,
	}
}

func pairKey(source, target string) string {
	return source + "-" + target
}

// IsValidPair checks if a language pair can be translated.
func (r *Router) IsValidPair(source, target string) bool {
	return source != target && r.getRoute(source, target) != nil
}

// SupportedPairs returns the configured direct pairs, sorted.
func (r *Router) SupportedPairs() []string {
	pairs := make([]string, 0, len(r.routes))
	for k := range r.routes {
		pairs = append(pairs, k)
	}
	sort.Strings(pairs)
	return pairs
}

// getRoute returns the steps for a pair: the direct route if configured,
// otherwise source→en followed by en→target.
func (r *Router) getRoute(source, target string) []Step {
	if source == "" || target == "" || source == target {
		return nil
	}
	if steps, ok := r.routes[pairKey(source, target)]; ok && len(steps) > 0 {
		return steps
	}
	if source == PivotLang || target == PivotLang {
		return nil
	}
	first, ok1 := r.routes[pairKey(source, PivotLang)]
	second, ok2 := r.routes[pairKey(PivotLang, target)]
	if !ok1 || !ok2 || len(first) == 0 || len(second) == 0 {
		return nil
	}
	route := make([]Step, 0, len(first)+len(second))
	route = append(route, first...)
	return append(route, second...)
}

// TranslateChunks translates all chunks, chaining Lambda calls along the route.
func (r *Router) TranslateChunks(ctx context.Context, source, target string, chunks [][]string) ([][]string, error) {
	if len(chunks) == 0 {
		return [][]string{}, nil
	}

	route := r.getRoute(source, target)
	if route == nil {
		return nil, fmt.Errorf("unsupported language pair: %s-%s", source, target)
	}

	currentChunks := chunks
	for i, step := range route {
		name := r.functionName(step.Function)
		result, err := r.invokeLambda(ctx, name, step.TargetLang, currentChunks)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s) failed: %w", i+1, name, err)
		}
		if !sameShape(result, currentChunks) {
			return nil, fmt.Errorf("step %d (%s) returned a mismatched batch", i+1, name)
		}
		currentChunks = result
	}

	return currentChunks, nil
}

func (r *Router) functionName(base string) string {
	if r.environment == "" || strings.HasSuffix(base, "-"+r.environment) {
		return base
	}
	return base + "-" + r.environment
}

func sameShape(a, b [][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
	}
	return true
}

// invokeLambda calls a translator Lambda with the given chunks.
func (r *Router) invokeLambda(ctx context.Context, functionName, targetLang string, chunks [][]string) ([][]string, error) {
	payload, err := json.Marshal(TranslatorRequest{
		Chunks:     chunks,
		TargetLang: targetLang,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	result, err := r.lambdaClient.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(functionName),
		Payload:      payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", functionName, err)
	}

	if result.FunctionError != nil {
		return nil, fmt.Errorf("lambda error: %s", *result.FunctionError)
	}

	var resp TranslatorResponse
	if err := json.Unmarshal(result.Payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Error != "" {
		return nil, fmt.Errorf("translator error: %s", resp.Error)
	}

	return resp.Translations, nil
}

// Translate implements gateway.Provider for a single text.
func (r *Router) Translate(ctx context.Context, text, source, target string) (string, error) {
	results, err := r.TranslateChunks(ctx, source, target, [][]string{{text}})
	if err != nil {
		return "", err
	}
	return results[0][0], nil
}
