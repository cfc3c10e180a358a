package main

//go:generate swag init -g cmd/jetsond/main.go -o docs

// @title           Jetson Ledger API
// @version         0.1.0
// @description     Stable/synthetic swaps, strategy registry, and treasury accounting.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
