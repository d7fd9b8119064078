// Command equirect converts side by side fisheye videos to equirectangular
// projection. Conversions run as resumable jobs: progress is checkpointed to
// the conversion directory after every chunk, and an interrupted run can be
// picked up with `equirect resume` or by draining the request queue with
// `equirect run`.
package main
