package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks aggregates the model and prompt handlers into one callbacks.Handler.
// metrics may be nil.
func NewAllCallbacks(metrics *Metrics) einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		ChatModel(newModelHandler(metrics)).
		Prompt(newPromptHandler()).
		Handler()
}
