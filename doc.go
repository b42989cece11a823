/*
go-headcount counts people in video. Frames from a video file or a live
camera are run through a YOLOv8 person detector, detections are tied to
stable identities across frames by a Kalman filter and minimum cost
assignment tracker, and two counters are kept: the people currently visible
and the total number of unique people seen.

The tracking core lives in the tracker package and has no dependency on
OpenCV. The session package wires detector, tracker and frame annotation
into a per video pipeline, and cmd/headcount exposes it as a CLI and HTTP
service.
*/
package headcount
