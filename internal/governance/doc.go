// Package governance holds runtime safety controls for the public listener.
// Today that is a per-client token-bucket rate limiter whose rejections are
// answered with RDAP error bodies.
package governance
