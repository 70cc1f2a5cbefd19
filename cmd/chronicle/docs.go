package main

//go:generate swag init -g cmd/chronicle/main.go -o docs

// @title           Homelab Chronicle API
// @version         1.0
// @description     Timeline of homelab changes: webhook ingestion, events, search, statistics and exports.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
