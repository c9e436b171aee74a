package main

import (
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/ashkedar/gridrush/internal/view"
)

func main() {
	ebiten.SetWindowTitle("gridrush")
	ebiten.SetWindowSize(1280, 720)
	if err := ebiten.RunGame(view.New()); err != nil {
		log.Fatal(err)
	}
}
