package study

// GradePoint maps a 0-100 percentage to a 0.0-4.0 grade point on the standard
// letter-grade breakpoints. No interpolation between breakpoints.
func GradePoint(percentage float64) float64 {
	switch {
	case percentage >= 93:
		return 4.0
	case percentage >= 90:
		return 3.7
	case percentage >= 87:
		return 3.3
	case percentage >= 83:
		return 3.0
	case percentage >= 80:
		return 2.7
	case percentage >= 77:
		return 2.3
	case percentage >= 73:
		return 2.0
	case percentage >= 70:
		return 1.7
	case percentage >= 67:
		return 1.3
	case percentage >= 65:
		return 1.0
	}
	return 0.0
}

// CourseAverage returns the arithmetic mean of grades over the course's
// completed, graded exams and assignments. ok is false when there is no such
// task; callers must distinguish "no data" from a 0% average.
func CourseAverage(courseID string, tasks []Task) (avg float64, ok bool) {
	var sum float64
	var n int
	for _, t := range tasks {
		if t.CourseID != courseID || t.Grade == nil || t.Status != StatusCompleted {
			continue
		}
		if t.Type != TypeExam && t.Type != TypeAssignment {
			continue
		}
		sum += *t.Grade
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// OverallGPA is the credit-weighted mean grade point over all courses that
// have a defined average. Courses without graded completed work do not count
// toward the denominator. Returns 0 when no course has a defined average.
func OverallGPA(courses []Course, tasks []Task) float64 {
	var totalPoints, totalCredits float64
	for _, c := range courses {
		avg, ok := CourseAverage(c.ID, tasks)
		if !ok {
			continue
		}
		totalPoints += GradePoint(avg) * float64(c.Credits)
		totalCredits += float64(c.Credits)
	}
	if totalCredits == 0 {
		return 0
	}
	return totalPoints / totalCredits
}
