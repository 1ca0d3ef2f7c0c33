// Package geom defines the obstacle and source geometry of a coverage scene
// and the ray intersection primitives used to measure occlusion.
// Points and directions are sdfx v3.Vec values.
package geom
