package llm

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/joonhokim/yakgwan/internal/config"
)

// Supported LLM providers.
const (
	ProviderOllama  = "ollama"
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
)

// Model wraps langchaingo LLM for text generation.
type Model struct {
	llm       llms.Model
	modelName string
}

// NewModel creates an LLM model based on configuration.
func NewModel(ctx context.Context, cfg config.Config) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case ProviderOpenAI:
		// Token comes from OPENAI_API_KEY
		model, err = openai.New(
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case ProviderBedrock:
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(ctx)
		if awsErr != nil {
			return nil, fmt.Errorf("load aws config: %w", awsErr)
		}
		client := bedrockruntime.NewFromConfig(awsCfg)
		model, err = bedrock.New(
			bedrock.WithClient(client),
			bedrock.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:       model,
		modelName: cfg.LLMModel,
	}, nil
}

// Generate generates text based on a prompt.
func (m *Model) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", wrapFatalError(err))
	}
	return response, nil
}

// GenerateWithSystem generates text with a system prompt.
func (m *Model) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := m.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate with system: %w", wrapFatalError(err))
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return response.Choices[0].Content, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// SynthesizeAnswer generates an answer to a coverage question from
// retrieved clause and entity context.
func (m *Model) SynthesizeAnswer(ctx context.Context, question string, evidence string) (string, error) {
	systemPrompt := `당신은 보험 약관 분석 전문가입니다. 제공된 약관 근거만을 사용하여 질문에 답하십시오.
- 근거에 없는 내용은 답하지 마십시오
- 보험금액, 기간, 질병코드는 근거에 나온 값을 그대로 인용하십시오
- 근거가 부족하면 부족하다고 명시하십시오
- 답변에 사용한 조항을 (제N조) 형식으로 인용하십시오`

	userPrompt := fmt.Sprintf(`근거:
%s

질문: %s

답변:`, evidence, question)

	return m.GenerateWithSystem(ctx, systemPrompt, userPrompt)
}

// ExtractCandidates asks the model for entities and relations in the
// given clause text. Output is the line protocol parsed by
// ParseExtraction.
func (m *Model) ExtractCandidates(ctx context.Context, text string, knownEntities []string) (string, error) {
	entitiesStr := ""
	if len(knownEntities) > 0 {
		entitiesStr = fmt.Sprintf("\n이미 추출된 엔티티 (참조 가능):\n%v", knownEntities)
	}

	systemPrompt := `당신은 보험 약관 지식그래프 구축 전문가입니다. 주어진 조항 텍스트에서 엔티티와 관계를 추출하십시오.

엔티티 타입: coverage_item, benefit_amount, disease, condition, exclusion, payment_rule, clause

출력 형식 (한 줄에 하나):
ENTITY|name|type|description
RELATION|source|target|relation_type|description

지침:
- 보장항목, 보험금, 질병, 지급조건, 면책사유를 빠짐없이 추출
- 관계 타입은 covers, excludes, requires, applies_rule, defined_in 중에서 선택
- 엔티티 이름은 약관에 나온 표현을 그대로 사용`

	userPrompt := fmt.Sprintf(`조항:
%s
%s

추출 결과:`, text, entitiesStr)

	return m.GenerateWithSystem(ctx, systemPrompt, userPrompt)
}
