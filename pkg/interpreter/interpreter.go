// Copyright 2025 Certen Protocol
//
// Control Interpreter
// Deterministic (and optionally AI-assisted) mapping from a control
// statement to a claim type, proof template, risk level, and required
// evidence kinds.

package interpreter

import (
	"context"
	"log"
	"os"
	"strings"
)

// ClaimType classifies what a proof is about.
type ClaimType string

const (
	ClaimEvidenceIntegrity   ClaimType = "evidence_integrity"
	ClaimControlEffectiveness ClaimType = "control_effectiveness"
	ClaimAuditTrail          ClaimType = "audit_trail"
)

// ProofTemplate names the shape of the zero-knowledge artifact to produce.
type ProofTemplate string

const (
	TemplateMerkleCommitment ProofTemplate = "merkle_commitment"
	TemplateZKPredicate      ProofTemplate = "zk_predicate"
	TemplateSignatureChain   ProofTemplate = "signature_chain"
)

// RiskLevel is the interpreter's assessed risk of the underlying control.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Source records whether an interpretation came from the rule-based
// fallback or a configured AI adapter.
type Source string

const (
	SourceRuleBased Source = "rule-based"
	SourceAI        Source = "ai"
)

// Interpretation is the interpreter's output for a control statement.
type Interpretation struct {
	ClaimType        ClaimType     `json:"claim_type"`
	ProofTemplate    ProofTemplate `json:"proof_template"`
	RiskLevel        RiskLevel     `json:"risk_level"`
	RequiredEvidence []string      `json:"required_evidence"`
	Reasoning        string        `json:"reasoning"`
	Confidence       float64       `json:"confidence"`
	Source           Source        `json:"source"`
}

type keywordGroup struct {
	name      string
	keywords  []string
	claim     ClaimType
	template  ProofTemplate
	risk      RiskLevel
	reasoning string
}

// groups is evaluated in order; the first matching group wins. Keep this
// order in sync with the declared claim-type precedence.
var groups = []keywordGroup{
	{
		name:      "A",
		keywords:  []string{"integrity", "backup", "log", "retention"},
		claim:     ClaimEvidenceIntegrity,
		template:  TemplateMerkleCommitment,
		risk:      RiskMedium,
		reasoning: "statement concerns data integrity, backups, logging, or retention",
	},
	{
		name:      "B",
		keywords:  []string{"access", "authenticat", "account", "identity", "least privilege", "mfa"},
		claim:     ClaimControlEffectiveness,
		template:  TemplateZKPredicate,
		risk:      RiskHigh,
		reasoning: "statement concerns access control, authentication, or identity management",
	},
	{
		name:      "C",
		keywords:  []string{"monitor", "audit", "track", "trail", "event"},
		claim:     ClaimAuditTrail,
		template:  TemplateSignatureChain,
		risk:      RiskMedium,
		reasoning: "statement concerns monitoring, auditing, or event tracking",
	},
}

const ruleBasedConfidence = 0.85

// evidenceKindTable maps (claim type, framework) to the evidence kinds a
// claim of that type requires for that framework. Frameworks not present
// fall back to the wildcard "*" entry.
var evidenceKindTable = map[ClaimType]map[string][]string{
	ClaimEvidenceIntegrity: {
		"*": {"log", "checksum", "backup_manifest"},
	},
	ClaimControlEffectiveness: {
		"*": {"config_snapshot", "access_review"},
	},
	ClaimAuditTrail: {
		"*": {"audit_log", "event_record"},
	},
}

func requiredEvidenceFor(claim ClaimType, framework string) []string {
	byFramework, ok := evidenceKindTable[claim]
	if !ok {
		return nil
	}
	if kinds, ok := byFramework[framework]; ok {
		return kinds
	}
	return byFramework["*"]
}

// Interpret maps (statement, framework, controlID) through the keyword
// groups deterministically. Always produces a result.
func Interpret(statement, framework, controlID string) Interpretation {
	lower := strings.ToLower(statement)

	for _, g := range groups {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				return Interpretation{
					ClaimType:        g.claim,
					ProofTemplate:    g.template,
					RiskLevel:        g.risk,
					RequiredEvidence: requiredEvidenceFor(g.claim, framework),
					Reasoning:        g.reasoning,
					Confidence:       ruleBasedConfidence,
					Source:           SourceRuleBased,
				}
			}
		}
	}

	return Interpretation{
		ClaimType:        ClaimControlEffectiveness,
		ProofTemplate:    TemplateMerkleCommitment,
		RiskLevel:        RiskMedium,
		RequiredEvidence: requiredEvidenceFor(ClaimControlEffectiveness, framework),
		Reasoning:        "no keyword group matched; defaulting to control effectiveness",
		Confidence:       ruleBasedConfidence,
		Source:           SourceRuleBased,
	}
}

// Interpreter wraps the rule-based path with an optional AI adapter,
// falling back on any adapter error, timeout, or schema-validation failure.
type Interpreter struct {
	adapter AIAdapter
	logger  *log.Logger
}

// New constructs an Interpreter. adapter may be nil to disable AI-assisted
// interpretation entirely.
func New(adapter AIAdapter) *Interpreter {
	return &Interpreter{
		adapter: adapter,
		logger:  log.New(os.Stdout, "[Interpreter] ", log.LstdFlags),
	}
}

// Interpret runs the AI adapter (if configured) under its own timeout,
// validating its output, and falls back to the rule-based path on failure.
func (i *Interpreter) Interpret(ctx context.Context, statement, framework, controlID string) Interpretation {
	if i.adapter == nil {
		return Interpret(statement, framework, controlID)
	}

	result, err := i.adapter.InterpretControl(ctx, statement, framework, controlID)
	if err != nil {
		i.logger.Printf("AI adapter failed, falling back to rule-based: %v", err)
		return Interpret(statement, framework, controlID)
	}

	if err := validate(result); err != nil {
		i.logger.Printf("AI adapter output failed validation, falling back to rule-based: %v", err)
		return Interpret(statement, framework, controlID)
	}

	result.Source = SourceAI
	if result.Confidence <= 0 {
		result.Confidence = 0.95
	}
	return *result
}
