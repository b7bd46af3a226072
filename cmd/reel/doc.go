// Command reel is the operator CLI for the reel daemon: registering
// assets, submitting transcode jobs, and inspecting the queue.
package main
