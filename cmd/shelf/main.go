// Package main is the entry point for the shelf server.
package main

func main() {
	Execute()
}
