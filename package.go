// Package infill turns marked spans of a document into model-generated text.
//
// A user writes a trigger token such as @[summarize the paragraph above]
// anywhere in a document. After a quiet period (or an explicit invoke), the
// trigger is detected, a bounded window of surrounding text is sent to a
// generation backend through a forced single-field function call, and the
// returned text replaces the trigger once the user confirms.
//
// The root package holds the pipeline's pure building blocks:
//
//   - [FindTrigger] / [FindTriggerInLine]: locate the first trigger token
//   - [BuildWindow]: clamp a character window around a match
//   - [ApplyReplacement] / [ApplyMatch]: substitute and place the cursor
//   - [Settings]: the flat settings record with documented defaults
//
// Orchestration lives in subpackages:
//
//	package main
//
//	import (
//	    "github.com/rickchristie/infill"
//	    "github.com/rickchristie/infill/controller"
//	    "github.com/rickchristie/infill/generator"
//	    "github.com/rickchristie/infill/models"
//	)
//
//	func main() {
//	    cfg := infill.DefaultSettings()
//	    cfg.APIKey = os.Getenv("OPENAI_API_KEY")
//
//	    client := generator.New(models.NewOpenAIModel, cfg)
//	    doc := infill.NewMemoryDocument("Summary: @[summarize the above]")
//
//	    ctrl, _ := controller.New(controller.Config{
//	        Settings:  cfg,
//	        Document:  doc,
//	        Generator: client,
//	        Prompter:  myPrompter,
//	    })
//	    defer ctrl.Close()
//
//	    ctrl.OnChange() // call from the editor's change notification
//	}
//
// # Concurrency
//
// Everything that touches controller state is serialized through the
// controller's lock, which plays the role of the editor's event thread.
// Backend calls and user dialogs run as continuations on their own
// goroutines, so the document stays editable while a generation is in
// flight.
package infill
