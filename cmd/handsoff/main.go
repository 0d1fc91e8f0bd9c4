// Command handsoff watches the webcam and alerts when a hand comes close to
// the face.
package main

func main() {
	Execute()
}
