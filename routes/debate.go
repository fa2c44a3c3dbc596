package routes

import (
	"claimscope/controllers"
	"claimscope/websocket"

	"github.com/gin-gonic/gin"
)

// SetupDebateRoutes registers the debate, audio, transcript and
// spectator endpoints.
func SetupDebateRoutes(router *gin.Engine) {
	debate := router.Group("/debate")
	{
		debate.POST("/run", controllers.RunDebate)
		debate.POST("/run-stream", controllers.RunDebateStream)
		debate.GET("/ws", websocket.DebateStreamHandler)
		debate.GET("/watch/:id", websocket.WatchDebateHandler)

		audio := debate.Group("/audio")
		{
			audio.POST("/stop", controllers.StopAudio)
			audio.POST("/pause", controllers.PauseAudio)
			audio.POST("/resume", controllers.ResumeAudio)
			audio.GET("/test-connection", controllers.TestAudioConnection)
		}

		debate.GET("/transcripts", controllers.ListTranscripts)
		debate.GET("/transcripts/:id", controllers.GetTranscript)
	}
}
