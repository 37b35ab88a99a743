package main

import (
	"fmt"
	"log"
	"os"

	"github.com/agentflare-ai/go-xmldom"
	"github.com/xsdkit/xsd"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: validate <xml-file> <xsd-file>")
		os.Exit(1)
	}

	xmlFile := os.Args[1]
	xsdFile := os.Args[2]

	// Read XML file
	xmlData, err := os.ReadFile(xmlFile)
	if err != nil {
		log.Fatalf("Failed to read XML file: %v", err)
	}

	// Parse XML document
	decoder := xmldom.NewDecoderFromBytes(xmlData)
	doc, err := decoder.Decode()
	if err != nil {
		log.Fatalf("Failed to parse XML: %v", err)
	}

	// Load XSD schema
	cache := xsd.NewSchemaCache("")
	schema, err := cache.Get(xsdFile)
	if err != nil {
		log.Fatalf("Failed to load XSD schema from %s: %v", xsdFile, err)
	}

	// Validate document
	validator := xsd.NewValidator(schema)
	violations := validator.Validate(doc)

	// Convert to diagnostics
	converter := xsd.NewDiagnosticConverter(xmlFile, string(xmlData))
	diagnostics := converter.Convert(violations)

	// Print results
	if len(diagnostics) == 0 {
		fmt.Printf("âœ… %s is valid!\n", xmlFile)
		os.Exit(0)
	}

	// Format and print errors
	formatter := &xsd.ErrorFormatter{
		Color:           true,
		ShowFullElement: false,
		ContextLines:    2,
	}

	fmt.Printf("Found %d validation issues in %s:\n\n", len(diagnostics), xmlFile)
	for _, diag := range diagnostics {
		fmt.Print(formatter.Format(diag, string(xmlData)))
		fmt.Println()
	}

	os.Exit(1)
}
