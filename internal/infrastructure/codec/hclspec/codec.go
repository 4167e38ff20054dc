// Package hclspec reads and writes diagram specifications as HCL documents:
//
//	diagram "Web App" {
//	  node "web" {
//	    type  = "aws_ec2"
//	    label = "Web"
//	  }
//	  connection {
//	    source = "web"
//	    target = "db"
//	  }
//	  cluster "Data" {
//	    nodes = ["db"]
//	  }
//	}
package hclspec

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"archdiagram/internal/domain/entity"
)

var (
	fileSchema = &hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "diagram", LabelNames: []string{"name"}},
		},
	}
	diagramSchema = &hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "node", LabelNames: []string{"id"}},
			{Type: "connection"},
			{Type: "cluster", LabelNames: []string{"name"}},
		},
	}
	nodeSchema = &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "type", Required: true},
			{Name: "label", Required: true},
			{Name: "cluster"},
		},
	}
	connectionSchema = &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "source", Required: true},
			{Name: "target", Required: true},
			{Name: "label"},
		},
	}
	clusterSchema = &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "nodes"},
		},
	}
)

// Decode parses an HCL document into a raw specification. Structural rules
// such as unique ids are left to the specification builder.
func Decode(src []byte, filename string) (entity.Specification, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return entity.Specification{}, newDiagnosticsError(filename, diags)
	}

	content, contentDiags := file.Body.Content(fileSchema)
	diags = append(diags, contentDiags...)
	if diags.HasErrors() {
		return entity.Specification{}, newDiagnosticsError(filename, diags)
	}

	blocks := content.Blocks.OfType("diagram")
	if len(blocks) != 1 {
		return entity.Specification{}, newDiagnosticsError(filename, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Expected exactly one diagram block",
			Detail:   fmt.Sprintf("Found %d diagram blocks.", len(blocks)),
		}})
	}

	spec, specDiags := decodeDiagram(blocks[0])
	diags = append(diags, specDiags...)
	if diags.HasErrors() {
		return entity.Specification{}, newDiagnosticsError(filename, diags)
	}
	return spec, nil
}

func decodeDiagram(block *hcl.Block) (entity.Specification, hcl.Diagnostics) {
	spec := entity.Specification{
		Name:        block.Labels[0],
		Nodes:       []entity.NodeSpec{},
		Connections: []entity.ConnectionSpec{},
	}

	content, diags := block.Body.Content(diagramSchema)

	for _, nb := range content.Blocks.OfType("node") {
		attrs, attrDiags := nb.Body.Content(nodeSchema)
		diags = append(diags, attrDiags...)
		if attrDiags.HasErrors() {
			continue
		}
		n := entity.NodeSpec{ID: nb.Labels[0]}
		n.Type, diags = stringAttr(attrs.Attributes, "type", diags)
		n.Label, diags = stringAttr(attrs.Attributes, "label", diags)
		n.Cluster, diags = stringAttr(attrs.Attributes, "cluster", diags)
		spec.Nodes = append(spec.Nodes, n)
	}

	for _, cb := range content.Blocks.OfType("connection") {
		attrs, attrDiags := cb.Body.Content(connectionSchema)
		diags = append(diags, attrDiags...)
		if attrDiags.HasErrors() {
			continue
		}
		var c entity.ConnectionSpec
		c.Source, diags = stringAttr(attrs.Attributes, "source", diags)
		c.Target, diags = stringAttr(attrs.Attributes, "target", diags)
		c.Label, diags = stringAttr(attrs.Attributes, "label", diags)
		spec.Connections = append(spec.Connections, c)
	}

	for _, clb := range content.Blocks.OfType("cluster") {
		attrs, attrDiags := clb.Body.Content(clusterSchema)
		diags = append(diags, attrDiags...)
		if attrDiags.HasErrors() {
			continue
		}
		cl := entity.ClusterSpec{Name: clb.Labels[0], Nodes: []string{}}
		cl.Nodes, diags = stringListAttr(attrs.Attributes, "nodes", diags)
		spec.Clusters = append(spec.Clusters, cl)
	}

	return spec, diags
}

func stringAttr(attrs hcl.Attributes, name string, diags hcl.Diagnostics) (string, hcl.Diagnostics) {
	attr, ok := attrs[name]
	if !ok {
		return "", diags
	}
	val, valDiags := attr.Expr.Value(nil)
	diags = append(diags, valDiags...)
	if valDiags.HasErrors() {
		return "", diags
	}
	if val.IsNull() || !val.Type().Equals(cty.String) {
		return "", append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  fmt.Sprintf("Attribute %s must be a string", name),
			Subject:  &attr.Range,
		})
	}
	return val.AsString(), diags
}

func stringListAttr(attrs hcl.Attributes, name string, diags hcl.Diagnostics) ([]string, hcl.Diagnostics) {
	out := []string{}
	attr, ok := attrs[name]
	if !ok {
		return out, diags
	}
	val, valDiags := attr.Expr.Value(nil)
	diags = append(diags, valDiags...)
	if valDiags.HasErrors() {
		return out, diags
	}
	if val.IsNull() || !(val.Type().IsListType() || val.Type().IsTupleType()) {
		return out, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  fmt.Sprintf("Attribute %s must be a list of strings", name),
			Subject:  &attr.Range,
		})
	}
	for it := val.ElementIterator(); it.Next(); {
		_, v := it.Element()
		if v.IsNull() || !v.Type().Equals(cty.String) {
			return out, append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  fmt.Sprintf("Attribute %s must be a list of strings", name),
				Subject:  &attr.Range,
			})
		}
		out = append(out, v.AsString())
	}
	return out, diags
}

// Encode writes a diagram as an HCL document that Decode reads back.
func Encode(d *entity.Diagram) []byte {
	f := hclwrite.NewEmptyFile()
	block := f.Body().AppendNewBlock("diagram", []string{d.Name})
	body := block.Body()

	for _, n := range d.Nodes {
		nb := body.AppendNewBlock("node", []string{n.ID}).Body()
		nb.SetAttributeValue("type", cty.StringVal(string(n.Type)))
		nb.SetAttributeValue("label", cty.StringVal(n.Label))
		if n.InCluster() {
			nb.SetAttributeValue("cluster", cty.StringVal(n.Cluster))
		}
	}

	for _, c := range d.Connections {
		cb := body.AppendNewBlock("connection", nil).Body()
		cb.SetAttributeValue("source", cty.StringVal(c.Source))
		cb.SetAttributeValue("target", cty.StringVal(c.Target))
		if c.HasLabel() {
			cb.SetAttributeValue("label", cty.StringVal(c.Label))
		}
	}

	for _, cl := range d.Clusters {
		clb := body.AppendNewBlock("cluster", []string{cl.Name}).Body()
		if len(cl.Nodes) == 0 {
			clb.SetAttributeValue("nodes", cty.ListValEmpty(cty.String))
			continue
		}
		vals := make([]cty.Value, 0, len(cl.Nodes))
		for _, id := range cl.Nodes {
			vals = append(vals, cty.StringVal(id))
		}
		clb.SetAttributeValue("nodes", cty.ListVal(vals))
	}

	return f.Bytes()
}
