package render

import (
	"sort"
	"strings"

	"github.com/goccy/go-graphviz/cgraph"

	"archdiagram/internal/domain/entity"
)

const (
	categoryCompute     = "compute"
	categoryDatabase    = "database"
	categoryNetwork     = "network"
	categoryIntegration = "integration"
	categoryStorage     = "storage"
	categoryManagement  = "management"
	categorySecurity    = "security"
	categoryGeneral     = "general"
)

type component struct {
	Provider    string
	Category    string
	Description string
}

var categoryShapes = map[string]cgraph.Shape{
	categoryCompute:     cgraph.Box3DShape,
	categoryDatabase:    cgraph.CylinderShape,
	categoryNetwork:     cgraph.HexagonShape,
	categoryIntegration: cgraph.ComponentShape,
	categoryStorage:     cgraph.FolderShape,
	categoryManagement:  cgraph.NoteShape,
	categorySecurity:    cgraph.OctagonShape,
	categoryGeneral:     cgraph.BoxShape,
}

var providerColors = map[string]string{
	"aws":   "#FFE8CC",
	"gcp":   "#D2E3FC",
	"azure": "#CCE4F7",
}

var components = map[string]component{
	// AWS
	"aws_ec2":              {"aws", categoryCompute, "Amazon EC2 virtual server"},
	"aws_lambda":           {"aws", categoryCompute, "AWS Lambda serverless function"},
	"aws_ecs":              {"aws", categoryCompute, "Amazon ECS container service"},
	"aws_eks":              {"aws", categoryCompute, "Amazon EKS Kubernetes cluster"},
	"aws_fargate":          {"aws", categoryCompute, "AWS Fargate serverless containers"},
	"aws_rds":              {"aws", categoryDatabase, "Amazon RDS relational database"},
	"aws_aurora":           {"aws", categoryDatabase, "Amazon Aurora database"},
	"aws_dynamodb":         {"aws", categoryDatabase, "Amazon DynamoDB NoSQL table"},
	"aws_elasticache":      {"aws", categoryDatabase, "Amazon ElastiCache in-memory cache"},
	"aws_redshift":         {"aws", categoryDatabase, "Amazon Redshift data warehouse"},
	"aws_vpc":              {"aws", categoryNetwork, "Amazon VPC virtual network"},
	"aws_subnet":           {"aws", categoryNetwork, "VPC subnet"},
	"aws_internet_gateway": {"aws", categoryNetwork, "VPC internet gateway"},
	"aws_nat_gateway":      {"aws", categoryNetwork, "VPC NAT gateway"},
	"aws_elb":              {"aws", categoryNetwork, "Elastic Load Balancer"},
	"aws_alb":              {"aws", categoryNetwork, "Application Load Balancer"},
	"aws_nlb":              {"aws", categoryNetwork, "Network Load Balancer"},
	"aws_route53":          {"aws", categoryNetwork, "Amazon Route 53 DNS"},
	"aws_cloudfront":       {"aws", categoryNetwork, "Amazon CloudFront CDN"},
	"aws_api_gateway":      {"aws", categoryNetwork, "Amazon API Gateway"},
	"aws_sqs":              {"aws", categoryIntegration, "Amazon SQS message queue"},
	"aws_sns":              {"aws", categoryIntegration, "Amazon SNS notification topic"},
	"aws_eventbridge":      {"aws", categoryIntegration, "Amazon EventBridge event bus"},
	"aws_kinesis":          {"aws", categoryIntegration, "Amazon Kinesis data stream"},
	"aws_step_functions":   {"aws", categoryIntegration, "AWS Step Functions workflow"},
	"aws_s3":               {"aws", categoryStorage, "Amazon S3 object storage"},
	"aws_efs":              {"aws", categoryStorage, "Amazon EFS file system"},
	"aws_cloudwatch":       {"aws", categoryManagement, "Amazon CloudWatch monitoring"},
	"aws_cloudtrail":       {"aws", categoryManagement, "AWS CloudTrail audit log"},
	"aws_iam":              {"aws", categorySecurity, "AWS IAM identity and access"},
	"aws_security_group":   {"aws", categorySecurity, "VPC security group"},
	"aws_cognito":          {"aws", categorySecurity, "Amazon Cognito user pool"},
	"aws_general":          {"aws", categoryGeneral, "Generic AWS resource"},

	// GCP
	"gcp_compute_engine":  {"gcp", categoryCompute, "Google Compute Engine virtual machine"},
	"gcp_gke":             {"gcp", categoryCompute, "Google Kubernetes Engine cluster"},
	"gcp_cloud_run":       {"gcp", categoryCompute, "Cloud Run container service"},
	"gcp_cloud_functions": {"gcp", categoryCompute, "Cloud Functions serverless function"},
	"gcp_app_engine":      {"gcp", categoryCompute, "App Engine application"},
	"gcp_cloud_sql":       {"gcp", categoryDatabase, "Cloud SQL relational database"},
	"gcp_firestore":       {"gcp", categoryDatabase, "Firestore document database"},
	"gcp_bigquery":        {"gcp", categoryDatabase, "BigQuery data warehouse"},
	"gcp_memorystore":     {"gcp", categoryDatabase, "Memorystore in-memory cache"},
	"gcp_load_balancing":  {"gcp", categoryNetwork, "Cloud Load Balancing"},
	"gcp_vpc":             {"gcp", categoryNetwork, "VPC network"},
	"gcp_cloud_cdn":       {"gcp", categoryNetwork, "Cloud CDN"},
	"gcp_pubsub":          {"gcp", categoryIntegration, "Pub/Sub messaging"},
	"gcp_gcs":             {"gcp", categoryStorage, "Cloud Storage bucket"},
	"gcp_monitoring":      {"gcp", categoryManagement, "Cloud Monitoring"},
	"gcp_iam":             {"gcp", categorySecurity, "Cloud IAM"},

	// Azure
	"azure_vm":               {"azure", categoryCompute, "Azure Virtual Machine"},
	"azure_aks":              {"azure", categoryCompute, "Azure Kubernetes Service"},
	"azure_functions":        {"azure", categoryCompute, "Azure Functions serverless function"},
	"azure_app_service":      {"azure", categoryCompute, "Azure App Service web app"},
	"azure_sql_database":     {"azure", categoryDatabase, "Azure SQL Database"},
	"azure_cosmos_db":        {"azure", categoryDatabase, "Azure Cosmos DB"},
	"azure_cache_redis":      {"azure", categoryDatabase, "Azure Cache for Redis"},
	"azure_load_balancer":    {"azure", categoryNetwork, "Azure Load Balancer"},
	"azure_app_gateway":      {"azure", categoryNetwork, "Azure Application Gateway"},
	"azure_vnet":             {"azure", categoryNetwork, "Azure Virtual Network"},
	"azure_front_door":       {"azure", categoryNetwork, "Azure Front Door"},
	"azure_service_bus":      {"azure", categoryIntegration, "Azure Service Bus"},
	"azure_event_hubs":       {"azure", categoryIntegration, "Azure Event Hubs"},
	"azure_blob_storage":     {"azure", categoryStorage, "Azure Blob Storage"},
	"azure_monitor":          {"azure", categoryManagement, "Azure Monitor"},
	"azure_key_vault":        {"azure", categorySecurity, "Azure Key Vault"},
	"azure_active_directory": {"azure", categorySecurity, "Microsoft Entra ID"},
}

// Short keys the model tends to emit.
var aliases = map[string]string{
	"ec2":               "aws_ec2",
	"lambda":            "aws_lambda",
	"ecs":               "aws_ecs",
	"eks":               "aws_eks",
	"rds":               "aws_rds",
	"dynamodb":          "aws_dynamodb",
	"elasticache":       "aws_elasticache",
	"vpc":               "aws_vpc",
	"subnet":            "aws_subnet",
	"internet_gateway":  "aws_internet_gateway",
	"security_group":    "aws_security_group",
	"elb":               "aws_elb",
	"alb":               "aws_alb",
	"nlb":               "aws_nlb",
	"route53":           "aws_route53",
	"cloudfront":        "aws_cloudfront",
	"api_gateway":       "aws_api_gateway",
	"sqs":               "aws_sqs",
	"sns":               "aws_sns",
	"s3":                "aws_s3",
	"cloudwatch":        "aws_cloudwatch",
	"iam":               "aws_iam",
	"general":           "aws_general",
	"compute_engine":    "gcp_compute_engine",
	"gke":               "gcp_gke",
	"cloud_sql":         "gcp_cloud_sql",
	"gcp_load_balancer": "gcp_load_balancing",
	"load_balancer":     "gcp_load_balancing",
	"cloud_functions":   "gcp_cloud_functions",
	"pubsub":            "gcp_pubsub",
	"virtual_machines":  "azure_vm",
	"azure_sql":         "azure_sql_database",
	"sql":               "azure_sql_database",
	"vm":                "azure_vm",
	"aks":               "azure_aks",
	"azure_blob":        "azure_blob_storage",
}

// Catalog answers questions about drawable node types.
type Catalog struct{}

func NewCatalog() Catalog {
	return Catalog{}
}

func (Catalog) lookup(nodeType string) (string, component, bool) {
	key := strings.ToLower(strings.TrimSpace(nodeType))
	if c, ok := components[key]; ok {
		return key, c, true
	}
	if canonical, ok := aliases[key]; ok {
		return canonical, components[canonical], true
	}
	return "", component{}, false
}

func (c Catalog) Supports(nodeType string) bool {
	_, _, ok := c.lookup(nodeType)
	return ok
}

func (Catalog) SupportedTypes() []string {
	out := make([]string, 0, len(components))
	for k := range components {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (c Catalog) Describe(nodeType string) string {
	_, comp, ok := c.lookup(nodeType)
	if !ok {
		return "unknown"
	}
	return comp.Description
}

func (c Catalog) Components() []entity.Component {
	out := make([]entity.Component, 0, len(components))
	for _, key := range c.SupportedTypes() {
		comp := components[key]
		out = append(out, entity.Component{
			Type:        key,
			Provider:    comp.Provider,
			Category:    comp.Category,
			Description: comp.Description,
		})
	}
	return out
}

func (Catalog) Providers() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, comp := range components {
		if _, ok := seen[comp.Provider]; ok {
			continue
		}
		seen[comp.Provider] = struct{}{}
		out = append(out, comp.Provider)
	}
	sort.Strings(out)
	return out
}

// TypesByProvider groups a provider's types by category. Unknown providers yield an empty map.
func (c Catalog) TypesByProvider(provider string) map[string][]string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	out := map[string][]string{}
	for _, key := range c.SupportedTypes() {
		comp := components[key]
		if comp.Provider == provider {
			out[comp.Category] = append(out[comp.Category], key)
		}
	}
	return out
}

func shapeFor(comp component) cgraph.Shape {
	if s, ok := categoryShapes[comp.Category]; ok {
		return s
	}
	return cgraph.BoxShape
}

func colorFor(comp component) string {
	if c, ok := providerColors[comp.Provider]; ok {
		return c
	}
	return "#EEEEEE"
}
