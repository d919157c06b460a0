// Package ensemble combines several binary classifiers into one.
//
// RandomForestClassifier bags decision trees over bootstrap samples and
// random feature subsets. GradientBoostingClassifier adds shallow regression
// trees fit to label residuals. VotingClassifier and StackingClassifier wrap
// arbitrary model.Classifier members.
//
// 使用例:
//
//	rf := ensemble.NewRandomForestClassifier(
//		ensemble.WithNumTrees(50),
//		ensemble.WithMaxFeatures("sqrt"),
//		ensemble.WithSeed(7),
//	)
//	if err := rf.Fit(X, y); err != nil {
//		return err
//	}
//	proba, _ := rf.PredictProba(Xtest)
package ensemble
