// Command maestro runs research workflows across LLM-backed agents.
package main

func main() {
	Execute()
}
