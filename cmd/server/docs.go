// Package main Studio Generation API
//
//	@title			Studio Generation API
//	@version		1.0
//	@description	Simulated text-to-image, text-to-video, image-to-video and frame-to-video generation sessions.
//
//	@host			localhost:8080
//	@BasePath		/api/v1
//
//	@tag.name			generation
//	@tag.description	生成会话接口
package main
