// Package common holds small cross-cutting helpers shared by pipeline
// nodes.
package common

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/faqrag/engine/internal/logger"
)

// PipelineInfo logs a structured info-level entry for a pipeline stage.
func PipelineInfo(ctx context.Context, stage, action string, fields map[string]interface{}) {
	entry(ctx, stage, action, fields).Info(action)
}

// PipelineWarn logs a structured warning-level entry for a pipeline stage.
func PipelineWarn(ctx context.Context, stage, action string, fields map[string]interface{}) {
	entry(ctx, stage, action, fields).Warn(action)
}

// PipelineError logs a structured error-level entry for a pipeline stage.
func PipelineError(ctx context.Context, stage, action string, fields map[string]interface{}) {
	entry(ctx, stage, action, fields).Error(action)
}

func entry(ctx context.Context, stage, action string, fields map[string]interface{}) *logrus.Entry {
	merged := make(logrus.Fields, len(fields)+2)
	merged["stage"] = stage
	merged["action"] = action
	for k, v := range fields {
		merged[k] = v
	}
	return logger.GetLogger(ctx).WithFields(merged)
}
