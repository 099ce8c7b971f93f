//go:build gocv

package main

import (
	_ "github.com/nvr-ai/go-detect/inference/opencv" // register the opencv engine
)
