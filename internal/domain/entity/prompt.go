package entity

import (
	"fmt"
	"strings"
)

type Prompt struct {
	ID   string
	Text string
}

const generationPrompt = `You are a cloud architecture diagram expert. Your task is to analyze a user's description and create a structured diagram specification.

SUPPORTED NODE TYPES: %s

USER DESCRIPTION: "%s"

INSTRUCTIONS:
1. Analyze the user's description and identify the components needed
2. Map each component to one of the supported node types
3. Create connections between components based on logical relationships
4. Group related components into clusters when appropriate
5. Return a valid JSON structure with the exact schema below

REQUIRED JSON SCHEMA:
{
    "name": "Diagram Title",
    "nodes": [
        {
            "id": "unique_node_id",
            "type": "node_type_from_supported_list",
            "label": "Display Name"
        }
    ],
    "connections": [
        {
            "source": "source_node_id",
            "target": "target_node_id",
            "label": "optional edge label"
        }
    ],
    "clusters": [
        {
            "name": "Cluster Name",
            "nodes": ["node_id1", "node_id2"]
        }
    ]
}

RULES:
- Only use node types from the supported list
- Each node must have a unique ID
- Connections must reference valid node IDs
- A node belongs to at most one cluster
- Clusters are optional but recommended for logical grouping
- Return ONLY valid JSON, no other text

EXAMPLES OF MAPPINGS:
- "web server" -> "aws_ec2"
- "database" -> "aws_rds"
- "load balancer" -> "aws_alb"
- "message queue" -> "aws_sqs"
- "monitoring" -> "aws_cloudwatch"
`

const assistantPrompt = `You are a helpful cloud architecture diagram assistant. You can:
1. Generate diagram specifications based on descriptions
2. Explain how to build diagrams
3. Suggest improvements to architectures
4. Answer questions about cloud components

SUPPORTED COMPONENTS: %s

USER MESSAGE: "%s"

INSTRUCTIONS:
- If the user wants a diagram, provide a JSON specification
- If the user asks questions, provide helpful explanations
- If the user's request is unclear, ask clarifying questions
- Always be helpful and educational

RESPONSE FORMAT:
- For diagram requests: Return JSON specification
- For questions: Provide clear explanations
- For unclear requests: Ask specific clarifying questions
`

const conversationPrompt = `You are a helpful AI assistant specialized in creating architecture diagrams. You can help users create AWS, Azure, and GCP architecture diagrams.

Your capabilities include:
- Creating AWS architectures (EC2 + RDS, FastAPI + SQS, Lambda + DynamoDB)
- Creating Azure architectures (App Service + SQL Database, Functions + Storage)
- Creating GCP architectures (Compute Engine + Cloud SQL, Cloud Functions + Firestore)

When users ask for diagrams, guide them to use specific requests like:
- "Create a FastAPI + SQS architecture"
- "Generate an EC2 + RDS diagram"
- "Make an AWS architecture with Lambda"

Be friendly, helpful, and conversational. Keep responses concise and engaging.

User: %s

Assistant:`

const HealthPromptText = "Hello, respond with 'OK'"

const (
	ConversationFallback = "I'm here to help you create architecture diagrams! Try asking me to 'Create a FastAPI + SQS architecture' or 'Generate an EC2 + RDS diagram' and I'll build one for you."
	ConversationBusy     = "I'm currently experiencing high demand from the AI service. Let me help you with diagram generation instead! Try asking me to 'Create a FastAPI + SQS architecture' or 'Generate an EC2 + RDS diagram' and I'll build one for you."
	WelcomeMessage       = "Welcome to the Diagram Generation Assistant! I can turn a description of your cloud architecture into a diagram. Try asking me to create a diagram like 'Create a simple AWS architecture with an EC2 instance and an RDS database'."
)

func GenerationPrompt(description string, supportedTypes []string) Prompt {
	return Prompt{
		ID:   "generation",
		Text: fmt.Sprintf(generationPrompt, strings.Join(supportedTypes, ", "), description),
	}
}

func AssistantPrompt(message string, supportedTypes []string) Prompt {
	return Prompt{
		ID:   "assistant",
		Text: fmt.Sprintf(assistantPrompt, strings.Join(supportedTypes, ", "), message),
	}
}

func ConversationPrompt(message string) Prompt {
	return Prompt{
		ID:   "conversation",
		Text: fmt.Sprintf(conversationPrompt, message),
	}
}

func HealthPrompt() Prompt {
	return Prompt{ID: "health", Text: HealthPromptText}
}
