package mappings

import "github.com/flowmorph/flowmorph/pkg/schema"

// builtinMappings is the shipped type table. Entries are ordered: for types
// with several candidates, conditional entries come first and the
// unconditional entry acts as the fallback.
var builtinMappings = []Mapping{
	{
		GraphType:       "flow-nodes.webhook",
		ScenarioModule:  "webhook:CustomWebhook",
		ScenarioVersion: 1,
		ParamRenames: map[string]string{
			"path":       "address",
			"httpMethod": "method",
		},
		DropParams: []string{"responseMode"},
		Status:     schema.NodeStatusPartial,
	},
	{
		GraphType:       "flow-nodes.httpRequest",
		ScenarioModule:  "http:SendRequest",
		ScenarioVersion: 2,
		ParamRenames: map[string]string{
			"url":           "address",
			"requestMethod": "method",
			"bodyContent":   "data",
			"headerValues":  "headers",
		},
	},
	{
		// GET-only simple fetch variant. Picked when the request carries no
		// body; keeps the target module minimal.
		GraphType:       "flow-nodes.httpRequest",
		ScenarioModule:  "http:GetFile",
		ScenarioVersion: 1,
		When:            `has(parameters.requestMethod) && parameters.requestMethod == "GET" && has(parameters.downloadResponse) && parameters.downloadResponse == true`,
		ParamRenames: map[string]string{
			"url": "address",
		},
	},
	{
		GraphType:       "flow-nodes.set",
		ScenarioModule:  "tools:SetVariables",
		ScenarioVersion: 1,
		ParamRenames: map[string]string{
			"values": "variables",
		},
	},
	{
		GraphType:       "flow-nodes.if",
		ScenarioModule:  "builtin:BasicRouter",
		ScenarioVersion: 1,
		ParamRenames: map[string]string{
			"conditions": "filter",
		},
		Status: schema.NodeStatusPartial,
	},
	{
		GraphType:       "flow-nodes.switch",
		ScenarioModule:  "builtin:BasicRouter",
		ScenarioVersion: 1,
		When:            `direction == "graph-to-scenario"`,
		ParamRenames: map[string]string{
			"rules": "routes",
		},
		Status: schema.NodeStatusPartial,
	},
	{
		GraphType:       "flow-nodes.merge",
		ScenarioModule:  "builtin:BasicAggregator",
		ScenarioVersion: 1,
		ParamRenames: map[string]string{
			"mode": "aggregationMode",
		},
		Status: schema.NodeStatusPartial,
	},
	{
		GraphType:       "flow-nodes.code",
		ScenarioModule:  "tools:RunScript",
		ScenarioVersion: 1,
		ParamRenames: map[string]string{
			"jsCode": "script",
		},
		DropParams: []string{"mode"},
		Status:     schema.NodeStatusPartial,
	},
	{
		GraphType:       "flow-nodes.scheduleTrigger",
		ScenarioModule:  "builtin:Schedule",
		ScenarioVersion: 1,
		ParamRenames: map[string]string{
			"cronExpression": "schedule",
		},
	},
	{
		GraphType:       "flow-nodes.manualTrigger",
		ScenarioModule:  "builtin:ManualRun",
		ScenarioVersion: 1,
	},
	{
		GraphType:       "flow-nodes.emailSend",
		ScenarioModule:  "email:SendEmail",
		ScenarioVersion: 2,
		ParamRenames: map[string]string{
			"toEmail":   "to",
			"fromEmail": "from",
			"subject":   "subject",
			"text":      "content",
		},
	},
	{
		GraphType:       "flow-nodes.readJson",
		ScenarioModule:  "json:ParseJSON",
		ScenarioVersion: 1,
		ParamRenames: map[string]string{
			"jsonInput": "source",
		},
	},
	{
		GraphType:       "flow-nodes.spreadsheet",
		ScenarioModule:  "sheets:AddRow",
		ScenarioVersion: 1,
		When:            `has(parameters.operation) && parameters.operation == "append"`,
		ParamRenames: map[string]string{
			"sheetId": "spreadsheetId",
			"range":   "sheetRange",
		},
	},
	{
		GraphType:       "flow-nodes.spreadsheet",
		ScenarioModule:  "sheets:GetRows",
		ScenarioVersion: 1,
		ParamRenames: map[string]string{
			"sheetId": "spreadsheetId",
			"range":   "sheetRange",
		},
		Status: schema.NodeStatusPartial,
	},
	{
		GraphType:       "flow-nodes.wait",
		ScenarioModule:  "builtin:Sleep",
		ScenarioVersion: 1,
		ParamRenames: map[string]string{
			"amount": "delay",
		},
	},
}
