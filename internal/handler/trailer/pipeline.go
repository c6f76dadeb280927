package trailer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"novel2trailer/internal/pkg/id"
	"novel2trailer/internal/pkg/jobstore"
)

// RunPipeline 异步执行整条流水线
// @Summary      执行流水线
// @Description  异步跑完从场景抽取到成片拼接的全部阶段，立即返回任务ID。各阶段自带幂等跳过，失败后重新发起即从断点续跑。
// @Tags         流水线
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      202       {object}  map[string]interface{}  "任务已受理"
// @Failure      404       {object}  ErrorResponse  "小说不存在"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/pipeline [post]
func (h *Handler) RunPipeline(c *gin.Context) {
	novelID := c.Param("novel_id")

	// 先确认小说存在，避免登记注定失败的任务
	if _, err := h.trailerService.GetNovel(c.Request.Context(), novelID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    40401,
			Message: "novel not found",
			Detail:  err.Error(),
		})
		return
	}

	now := time.Now()
	job := &jobstore.Job{
		ID:        id.New(),
		NovelID:   novelID,
		Status:    jobstore.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.jobs.Put(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: "failed to register pipeline job",
			Detail:  err.Error(),
		})
		return
	}

	// 脱离请求生命周期执行；任务状态随阶段推进写回登记表
	go h.runPipelineJob(job)

	c.JSON(http.StatusAccepted, gin.H{
		"code":    0,
		"message": "流水线任务已受理",
		"data":    gin.H{"job_id": job.ID},
	})
}

// runPipelineJob 后台执行流水线并维护任务状态
func (h *Handler) runPipelineJob(job *jobstore.Job) {
	ctx := context.Background()

	update := func(mutate func(*jobstore.Job)) {
		mutate(job)
		job.UpdatedAt = time.Now()
		if err := h.jobs.Put(ctx, job); err != nil {
			log.Warn().Err(err).Str("job_id", job.ID).Msg("任务状态写回失败")
		}
	}

	update(func(j *jobstore.Job) { j.Status = jobstore.StatusRunning })

	err := h.trailerService.RunPipeline(ctx, job.NovelID, func(stage string) {
		update(func(j *jobstore.Job) { j.Stage = stage })
	})
	if err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Str("novel_id", job.NovelID).Msg("流水线任务失败")
		update(func(j *jobstore.Job) {
			j.Status = jobstore.StatusFailed
			j.Error = err.Error()
		})
		return
	}

	update(func(j *jobstore.Job) { j.Status = jobstore.StatusCompleted })
	log.Info().Str("job_id", job.ID).Str("novel_id", job.NovelID).Msg("流水线任务完成")
}

// GetJob 查询流水线任务
// @Summary      查询任务
// @Description  按任务ID查询异步流水线的当前阶段与状态
// @Tags         流水线
// @Produce      json
// @Param        job_id  path      string  true  "任务ID"
// @Success      200     {object}  map[string]interface{}  "成功响应"
// @Failure      404     {object}  ErrorResponse  "任务不存在或已过期"
// @Router       /api/v1/jobs/{job_id} [get]
func (h *Handler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.jobs.Get(c.Request.Context(), jobID)
	if err != nil {
		status := http.StatusInternalServerError
		code := 50001
		if errors.Is(err, jobstore.ErrNotFound) {
			status = http.StatusNotFound
			code = 40401
		}
		c.JSON(status, ErrorResponse{
			Code:    code,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "获取成功",
		"data":    job,
	})
}

// ListJobs 列出流水线任务
// @Summary      列出任务
// @Tags         流水线
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Failure      500  {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/jobs [get]
func (h *Handler) ListJobs(c *gin.Context) {
	jobs, err := h.jobs.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "获取成功",
		"data":    jobs,
	})
}
