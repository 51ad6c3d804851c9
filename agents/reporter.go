package agents

import (
	"context"

	"go.uber.org/zap"
)

const reporterDescription = `# Functionality:
This agent delivers the final response to the user exactly as provided, without any modifications or additional commentary. Use this agent when you have a final response to deliver to the user.

## Inputs:
- 'instruction': The complete and final response to be delivered to the user verbatim.

## Outputs:
- 'response': The final response, delivered to the user without any alterations.

## Important Notes:
- This agent does not generate or modify content. It only relays the given response.
- Ensure that the input 'instruction' is the fully prepared, final response intended for the user.
- No preamble, commentary, or additional formatting will be added to the response.

## Remember:
- I cannot generate any response, I can only relay your response to the user.`

// Reporter 是汇报代理。
// 它不调用模型，只把 meta 的最终稿原样转写到自己的 workpad 条目并结束流程。
type Reporter struct {
	*Base
}

// NewReporter 创建汇报代理。名字为空时使用 ReporterAgentName。
func NewReporter(cfg Config, logger *zap.Logger) *Reporter {
	if cfg.Name == "" {
		cfg.Name = ReporterAgentName
	}
	if cfg.Description == "" {
		cfg.Description = reporterDescription
	}
	return &Reporter{Base: NewBase(cfg, nil, logger)}
}

// Invoke 转发 meta 指令。没有指令时不写入。
func (r *Reporter) Invoke(ctx context.Context, pad *Workpad) error {
	instruction := r.ReadInstructions(pad)
	if instruction == "" {
		r.Logger().Info("no instruction to report")
		return nil
	}

	pad.Append(r.Name(), instruction)
	r.Logger().Info("final response relayed", zap.Int("response_len", len(instruction)))
	return nil
}
