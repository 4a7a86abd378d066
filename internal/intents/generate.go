package intents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"intents/internal/eventbus"
	"intents/internal/extract"
	"intents/internal/metrics"
	"intents/internal/oracle"
	"intents/internal/store"
)

// GenerateResult is returned by Generate. When Generated is false nothing
// was written and Message explains why.
type GenerateResult struct {
	Name       string
	Code       string
	Parameters []string
	Message    string
	Generated  bool
}

// FixResult is returned by FixErrors. The fixed code is not persisted.
type FixResult struct {
	FixedCode  string
	Parameters []string
	Message    string
	Fixed      bool
}

// promptHeader is prepended to generated code to record its description.
// The description is folded onto one line: Python ends a comment at \n, \r
// or \r\n, so any of them would turn the rest of the text into code.
func promptHeader(description string) string {
	return "# Prompt: " + strings.Join(strings.Fields(description), " ") + "\n\n"
}

// ask calls the oracle and extracts code. A non-empty warning means the
// oracle failed and the caller should degrade.
func (s *Service) ask(ctx context.Context, prompt string) (code string, params []string, warning string) {
	res, err := s.oracle.Generate(ctx, prompt)
	switch {
	case err != nil:
		return "", []string{}, fmt.Sprintf("⚠️ Could not run the model: %v", err)
	case !res.Succeeded:
		return "", []string{}, fmt.Sprintf("⚠️ The model failed: %s", res.Text)
	}
	code, params = extract.Extract(res.Text)
	if code == "" {
		return "", []string{}, "⚠️ The model returned no code."
	}
	return code, params, ""
}

// Generate asks the oracle for code implementing description and stores it
// under name, overwriting any previous record. Oracle failures are reported
// through the result, not as errors, and leave the store untouched.
func (s *Service) Generate(ctx context.Context, name, description string) (GenerateResult, error) {
	if strings.TrimSpace(description) == "" {
		return GenerateResult{}, fmt.Errorf("%w: description is required", ErrBadRequest)
	}
	if _, err := s.store.Path(name); err != nil {
		return GenerateResult{}, err
	}
	normalized := store.Normalize(name)
	start := s.now()
	log := s.log.With(zap.String("intent", normalized))
	log.Info("🤖 [INTENTS] generating", zap.Int("description_chars", len(description)))

	code, params, warning := s.ask(ctx, oracle.GeneratePrompt(description))
	if warning != "" {
		log.Warn("⚠️ [INTENTS] generation degraded", zap.String("reason", warning))
		s.observe(ctx, name, metrics.ActionGenerate, eventbus.TypeGenerated, start, false, warning)
		return GenerateResult{Name: normalized, Parameters: []string{}, Message: warning}, nil
	}

	if err := s.store.Save(name, promptHeader(description)+code); err != nil {
		s.observe(ctx, name, metrics.ActionGenerate, eventbus.TypeGenerated, start, false, err.Error())
		return GenerateResult{}, err
	}
	msg := fmt.Sprintf("✅ Intent '%s' generated and saved.", normalized)
	s.observe(ctx, name, metrics.ActionGenerate, eventbus.TypeGenerated, start, true, msg)
	log.Info("✅ [INTENTS] generated", zap.Strings("parameters", params))
	return GenerateResult{
		Name:       normalized,
		Code:       code,
		Parameters: params,
		Message:    msg,
		Generated:  true,
	}, nil
}

// FixErrors asks the oracle to correct code and returns the corrected
// version without storing it.
func (s *Service) FixErrors(ctx context.Context, code string) (FixResult, error) {
	if code == "" {
		return FixResult{}, fmt.Errorf("%w: no code provided", ErrBadRequest)
	}
	start := s.now()
	s.log.Info("🔧 [INTENTS] fixing code", zap.Int("code_chars", len(code)))

	fixed, params, warning := s.ask(ctx, oracle.FixPrompt(code))
	if warning != "" {
		s.log.Warn("⚠️ [INTENTS] fix degraded", zap.String("reason", warning))
		s.observe(ctx, "", metrics.ActionFix, eventbus.TypeFixed, start, false, warning)
		return FixResult{Parameters: []string{}, Message: warning}, nil
	}
	msg := "✅ Code corrected. Review it and save it if it looks right."
	s.observe(ctx, "", metrics.ActionFix, eventbus.TypeFixed, start, true, msg)
	return FixResult{FixedCode: fixed, Parameters: params, Message: msg, Fixed: true}, nil
}
