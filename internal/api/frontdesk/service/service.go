package frontdeskService

import (
	"frontdesk/internal/api/frontdesk"
	"frontdesk/internal/entity"
	"golang.org/x/net/context"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HistoryContextTurns    int
	GenerationHistoryTurns int
	LexicalCandidates      int
	KeywordCandidates      int
	InferenceTimeout       time.Duration
	CompanyName            string
	LearnedAnswersLimit    int
	HelpRequestListLimit   int
}

func DefaultConfig() Config {
	return Config{
		HistoryContextTurns:    4,
		GenerationHistoryTurns: 6,
		LexicalCandidates:      5,
		KeywordCandidates:      3,
		InferenceTimeout:       10 * time.Second,
		CompanyName:            "FrontDesk",
		LearnedAnswersLimit:    50,
		HelpRequestListLimit:   100,
	}
}

// LoadConfig overrides the defaults with any valid environment value.
func LoadConfig() Config {
	cfg := DefaultConfig()

	cfg.HistoryContextTurns = envInt("HISTORY_CONTEXT_TURNS", cfg.HistoryContextTurns)
	cfg.GenerationHistoryTurns = envInt("GENERATION_HISTORY_TURNS", cfg.GenerationHistoryTurns)
	cfg.LexicalCandidates = envInt("LEXICAL_CANDIDATES", cfg.LexicalCandidates)
	cfg.KeywordCandidates = envInt("KEYWORD_CANDIDATES", cfg.KeywordCandidates)
	cfg.LearnedAnswersLimit = envInt("LEARNED_ANSWERS_LIMIT", cfg.LearnedAnswersLimit)
	cfg.HelpRequestListLimit = envInt("HELP_REQUEST_LIST_LIMIT", cfg.HelpRequestListLimit)

	if raw := os.Getenv("INFERENCE_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.InferenceTimeout = d
		}
	}
	if name := os.Getenv("COMPANY_NAME"); name != "" {
		cfg.CompanyName = name
	}

	return cfg
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

type IKnowledgeService interface {
	Match(ctx context.Context, question string) (*entity.KnowledgeEntry, error)
	AddKnowledge(ctx context.Context, req AddKnowledge) (entity.KnowledgeEntry, error)
	ListLearnedAnswers(ctx context.Context, limit int) ([]entity.KnowledgeEntry, error)
	SetActive(ctx context.Context, id string, active bool) (entity.KnowledgeEntry, error)
	SeedInitialKnowledge(ctx context.Context) (int, error)
}

type IEscalationPolicy interface {
	Decide(ctx context.Context, question string, recent []entity.Turn) EscalationDecision
	ShouldEscalate(ctx context.Context, question string, recent []entity.Turn) bool
}

type IHelpRequestService interface {
	Create(ctx context.Context, req frontdesk.CreateHelpRequest) (entity.HelpRequest, error)
	Resolve(ctx context.Context, id string, req frontdesk.ResolveHelpRequest) (entity.HelpRequest, error)
	GetByID(ctx context.Context, id string) (entity.HelpRequest, error)
	ListByStatus(ctx context.Context, status entity.HelpRequestStatus) ([]entity.HelpRequest, error)
	ListPending(ctx context.Context) ([]entity.HelpRequest, error)
	ListAll(ctx context.Context, status string, limit int) ([]entity.HelpRequest, error)
	Statistics(ctx context.Context) (entity.HelpRequestStats, error)
}

type ICallService interface {
	OpenSession(ctx context.Context, sessionKey, customerPhone, customerName string) (entity.Conversation, error)
	HandleUtterance(ctx context.Context, sessionKey, text string) (frontdesk.UtteranceResult, error)
	CloseSession(ctx context.Context, sessionKey string) error
	GetSession(ctx context.Context, sessionKey string) (entity.Conversation, error)
}
