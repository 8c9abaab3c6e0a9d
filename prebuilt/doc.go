// Package prebuilt provides CreateReactAgent, a tool-calling ReAct agent
// graph built on the graph package's generic StateGraph.
//
// The web_surfer tool (internal/toolkit/websurfer) uses it to drive a
// headless text browser through a fixed roster of navigation primitives:
// the model alternates between proposing a tool call and receiving that
// tool's result until it produces a plain-text answer or maxIterations is
// reached.
//
//	agent, err := prebuilt.CreateReactAgent(model, browserTools, 10)
//	result, err := agent.Invoke(ctx, map[string]any{
//		"messages": []llms.MessageContent{
//			llms.TextParts(llms.ChatMessageTypeHuman, "summarize this page"),
//		},
//	})
package prebuilt
