package engine

import (
	"fmt"

	"github.com/talon-sec/talon/agent"
	"github.com/talon-sec/talon/netstate"
)

const stateInstructions = `You are a network state building agent that analyzes the chat history to construct the network state in JSON format. Consider the following:
- For files, include permissions and the complete filepath
- Do not repeat endpoint entries for the same IP address
- Only include facts observed in tool output, never assumptions

The last known state of the network is:
----------------------------
%s
----------------------------`

// StateAgent builds the agent that condenses the transcript into a
// structured network state. Its output conforms to netstate.Schema and is
// merged into the Runner's NetworkState on the state cadence.
func StateAgent(model string) *agent.Agent {
	return &agent.Agent{
		Name:  "state_builder",
		Model: model,
		InstructionsFunc: func(vars agent.ContextVars) string {
			last, _ := vars["network_state"].(string)
			if last == "" {
				last = "No previous state"
			}
			return fmt.Sprintf(stateInstructions, last)
		},
		ResponseSchema: netstate.Schema(),
	}
}
