// Command cdsctl inspects and maintains critical data store images.
package main

func main() {
	execute()
}
