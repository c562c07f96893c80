package service

import (
	"github.com/ShaanSolanki/lms/internal/service/auth"
	"github.com/ShaanSolanki/lms/internal/service/course"
	"github.com/ShaanSolanki/lms/internal/service/enrollment"
	"github.com/ShaanSolanki/lms/internal/service/upload"
)

type Collection struct {
	*auth.AuthService
	*auth.Gate
	*course.CourseService
	*enrollment.EnrollmentService
	*upload.UploadService
}
