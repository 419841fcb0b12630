package main

import (
	"context"
	"fmt"
	"os"
	"time"
)

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <openapi.yaml|json|url> [<baseline-openapi.yaml>]\n", os.Args[0])
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc, err := loadDoc(ctx, os.Args[1])
	if err != nil {
		exitErr(err)
	}
	if err := checkContract(doc); err != nil {
		exitErr(err)
	}

	if len(os.Args) == 3 {
		baseline, err := loadDoc(ctx, os.Args[2])
		if err != nil {
			exitErr(err)
		}
		if err := checkContract(baseline); err != nil {
			exitErr(fmt.Errorf("baseline: %w", err))
		}
		if err := compareDocs(baseline, doc); err != nil {
			exitErr(err)
		}
	}

	fmt.Println("OpenAPI contract check passed.")
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
