package main

//go:generate swag init -g cmd/collector/main.go -o docs

// @title           Pokeca Price Collector API
// @version         0.1.0
// @description     Card price collection, hourly snapshots, rankings and collector controls.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
