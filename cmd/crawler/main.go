// Package main provides the entry point for the Indeed job crawler.
//
// Usage:
//
//	crawler --position "web developer" --location "San Francisco" --max-pages 2
//
// Everything beyond the four flags is configured through the environment.
package main

func main() {
	Execute()
}
